package contract

import (
	"context"
	"errors"
	"math/big"
	"strings"

	"estate_trade/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// RegistryABI 所有权登记合约ABI（ERC721的所有权/授权/过户子集）
const RegistryABI = `[
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// ERC721Registry 所有权登记器（链上ERC721合约客户端）
// 过户由平台托管账户签名发出，因此托管账户需先获得持有人的operator授权
type ERC721Registry struct {
	client       *ethclient.Client
	bound        *bind.BoundContract
	contractAddr common.Address
	chainID      *big.Int
	auth         *bind.TransactOpts
}

// NewERC721Registry 创建所有权登记器
// params: rpcUrl-节点地址, contractAddr-合约地址, operatorKey-平台托管账户私钥
func NewERC721Registry(rpcUrl, contractAddr, operatorKey string) (*ERC721Registry, error) {
	// 连接区块链节点
	client, err := ethclient.Dial(rpcUrl)
	if err != nil {
		utils.Logger.Error("连接区块链节点失败", zap.String("rpcUrl", rpcUrl), zap.Error(err))
		return nil, err
	}

	// 解析ABI
	abiObj, err := abi.JSON(strings.NewReader(RegistryABI))
	if err != nil {
		utils.Logger.Error("解析ABI失败", zap.Error(err))
		return nil, err
	}

	// 获取链ID
	chainID, err := client.ChainID(context.Background())
	if err != nil {
		utils.Logger.Error("获取链ID失败", zap.Error(err))
		return nil, err
	}

	// 构建过户签名授权
	key, err := crypto.HexToECDSA(strings.TrimPrefix(operatorKey, "0x"))
	if err != nil {
		utils.Logger.Error("解析托管账户私钥失败", zap.Error(err))
		return nil, err
	}
	auth, err := bind.NewKeyedTransactorWithChainID(key, chainID)
	if err != nil {
		utils.Logger.Error("构建交易授权失败", zap.Error(err))
		return nil, err
	}

	addr := common.HexToAddress(contractAddr)
	return &ERC721Registry{
		client:       client,
		bound:        bind.NewBoundContract(addr, abiObj, client, client, client),
		contractAddr: addr,
		chainID:      chainID,
		auth:         auth,
	}, nil
}

// CustodianOf 查询token当前持有人地址
func (r *ERC721Registry) CustodianOf(ctx context.Context, tokenID uint64) (string, error) {
	var out []interface{}
	opts := &bind.CallOpts{Context: ctx}
	if err := r.bound.Call(opts, &out, "ownerOf", new(big.Int).SetUint64(tokenID)); err != nil {
		return "", err
	}
	owner := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	return owner.Hex(), nil
}

// IsApprovedOrCustodian 判断caller是否为持有人或被授权操作者
func (r *ERC721Registry) IsApprovedOrCustodian(ctx context.Context, caller string, tokenID uint64) (bool, error) {
	owner, err := r.CustodianOf(ctx, tokenID)
	if err != nil {
		return false, err
	}
	callerAddr := common.HexToAddress(caller)
	if common.HexToAddress(owner) == callerAddr {
		return true, nil
	}

	opts := &bind.CallOpts{Context: ctx}

	// 单token授权
	var out []interface{}
	if err := r.bound.Call(opts, &out, "getApproved", new(big.Int).SetUint64(tokenID)); err != nil {
		return false, err
	}
	approved := *abi.ConvertType(out[0], new(common.Address)).(*common.Address)
	if approved == callerAddr {
		return true, nil
	}

	// 全量operator授权
	out = out[:0]
	if err := r.bound.Call(opts, &out, "isApprovedForAll", common.HexToAddress(owner), callerAddr); err != nil {
		return false, err
	}
	forAll := *abi.ConvertType(out[0], new(bool)).(*bool)
	return forAll, nil
}

// TransferCustody 执行链上过户（from→to），返回交易哈希
func (r *ERC721Registry) TransferCustody(ctx context.Context, from, to string, tokenID uint64) (string, error) {
	tx, err := r.bound.Transact(r.auth, "safeTransferFrom",
		common.HexToAddress(from), common.HexToAddress(to), new(big.Int).SetUint64(tokenID))
	if err != nil {
		utils.Logger.Error("执行safeTransferFrom失败", zap.Uint64("token_id", tokenID), zap.Error(err))
		return "", err
	}

	// 等待交易上链并校验执行状态
	receipt, err := bind.WaitMined(ctx, r.client, tx)
	if err != nil {
		utils.Logger.Error("等待过户交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return "", err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("过户交易执行失败（状态为0）", zap.String("txHash", tx.Hash().Hex()))
		return "", errors.New("transfer custody tx reverted")
	}

	return tx.Hash().Hex(), nil
}
