// server/internal/models/common.go
package models

// Payment mô tả điều kiện thanh toán của một offer.
type Payment struct {
	Method string `bson:"method" json:"method"`
	Terms  string `bson:"terms" json:"terms"`
}

// Delivery mô tả cách giao hàng và số ngày giao.
type Delivery struct {
	Method string `bson:"method" json:"method"`
	Days   int    `bson:"days" json:"days"`
}

// Address is the free-form business address attached to profiles and requests.
type Address struct {
	FullText string `bson:"fullText" json:"fullText"`
	City     string `bson:"city,omitempty" json:"city,omitempty"`
	State    string `bson:"state,omitempty" json:"state,omitempty"`
}
