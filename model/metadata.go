package model

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// metadataAttribute OpenSea风格的属性项
type metadataAttribute struct {
	TraitType string      `json:"trait_type"`
	Value     interface{} `json:"value"`
}

// tokenMetadata token元数据文档
type tokenMetadata struct {
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Image       string              `json:"image"`
	Attributes  []metadataAttribute `json:"attributes"`
}

// TokenURI 将房产记录打包为自包含的data URI（JSON+base64），
// 图片为按尺寸生成的内嵌SVG，不依赖任何外部存储
func TokenURI(record *PropertyRecord) string {
	doc := tokenMetadata{
		Name:        fmt.Sprintf("Estate #%d", record.TokenID),
		Description: fmt.Sprintf("%s at (%d, %d), %d x %d", record.Category.String(), record.X, record.Y, record.Length, record.Width),
		Image:       propertyImage(record),
		Attributes: []metadataAttribute{
			{TraitType: "category", Value: record.Category.String()},
			{TraitType: "length", Value: record.Length},
			{TraitType: "width", Value: record.Width},
			{TraitType: "x", Value: record.X},
			{TraitType: "y", Value: record.Y},
		},
	}

	// 字段均为可序列化的基础类型，Marshal不会失败
	raw, _ := json.Marshal(doc)
	return "data:application/json;base64," + base64.StdEncoding.EncodeToString(raw)
}

// propertyImage 生成内嵌SVG示意图（矩形比例对应房产长宽）
func propertyImage(record *PropertyRecord) string {
	svg := fmt.Sprintf(
		`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d"><rect width="%d" height="%d" fill="%s"/><text x="4" y="14" font-size="10" fill="#fff">#%d</text></svg>`,
		record.Length, record.Width, record.Length, record.Width, categoryColor(record.Category), record.TokenID,
	)
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString([]byte(svg))
}

func categoryColor(c PropertyCategory) string {
	switch c {
	case CategoryLand:
		return "#7cb342"
	case CategoryHouse:
		return "#8d6e63"
	case CategoryApartment:
		return "#5c6bc0"
	default:
		return "#9e9e9e"
	}
}
