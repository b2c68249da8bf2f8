package contract

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"math/big"
	"strings"

	"estate_trade/utils"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// 原生币转账的固定gas上限
const transferGasLimit = 21000

// NativePayer 原生币出账器：从平台托管账户向外推送转账
// （退还预付款、支付卖方货款），任何一笔失败都会使上层操作整体失败
type NativePayer struct {
	client  *ethclient.Client
	key     *ecdsa.PrivateKey
	from    common.Address
	chainID *big.Int
}

// NewNativePayer 创建出账器
func NewNativePayer(rpcUrl, privateKey string) (*NativePayer, error) {
	client, err := ethclient.Dial(rpcUrl)
	if err != nil {
		utils.Logger.Error("连接区块链节点失败", zap.String("rpcUrl", rpcUrl), zap.Error(err))
		return nil, err
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		utils.Logger.Error("解析托管账户私钥失败", zap.Error(err))
		return nil, err
	}

	chainID, err := client.ChainID(context.Background())
	if err != nil {
		utils.Logger.Error("获取链ID失败", zap.Error(err))
		return nil, err
	}

	return &NativePayer{
		client:  client,
		key:     key,
		from:    crypto.PubkeyToAddress(key.PublicKey),
		chainID: chainID,
	}, nil
}

// Send 向to推送amount（wei）原生币，交易未上链或回滚均返回错误
func (p *NativePayer) Send(ctx context.Context, to string, amount *big.Int) error {
	if amount == nil || amount.Sign() == 0 {
		return nil
	}

	nonce, err := p.client.PendingNonceAt(ctx, p.from)
	if err != nil {
		return err
	}
	gasPrice, err := p.client.SuggestGasPrice(ctx)
	if err != nil {
		return err
	}

	tx := types.NewTransaction(nonce, common.HexToAddress(to), amount, transferGasLimit, gasPrice, nil)
	signed, err := types.SignTx(tx, types.NewEIP155Signer(p.chainID), p.key)
	if err != nil {
		return err
	}
	if err := p.client.SendTransaction(ctx, signed); err != nil {
		utils.Logger.Error("发送转账交易失败", zap.String("to", to), zap.String("amount", amount.String()), zap.Error(err))
		return err
	}

	receipt, err := bind.WaitMined(ctx, p.client, signed)
	if err != nil {
		utils.Logger.Error("等待转账交易上链失败", zap.String("txHash", signed.Hash().Hex()), zap.Error(err))
		return err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("转账交易执行失败（状态为0）", zap.String("txHash", signed.Hash().Hex()))
		return errors.New("native transfer tx reverted")
	}

	return nil
}
