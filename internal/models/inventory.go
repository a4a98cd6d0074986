package models

import "time"

// InventoryItem is stored at users/{uid}/inventory/{itemID}.
type InventoryItem struct {
	ItemID     string    `bson:"itemID" json:"itemID"`
	ItemName   string    `bson:"itemName" json:"itemName"`
	Quantity   float64   `bson:"quantity" json:"quantity"`
	Unit       string    `bson:"unit,omitempty" json:"unit,omitempty"`
	PresetMode bool      `bson:"presetMode" json:"presetMode"`
	PresetQty  float64   `bson:"presetQty" json:"presetQty"`
	RequestQty float64   `bson:"requestQty,omitempty" json:"requestQty,omitempty"`
	UpdatedAt  time.Time `bson:"updatedAt" json:"updatedAt"`
}

// InventorySnapshot is one point of users/{uid}/inventoryHistory.
type InventorySnapshot struct {
	ItemID    string    `bson:"itemID" json:"itemID"`
	Quantity  float64   `bson:"quantity" json:"quantity"`
	Reason    string    `bson:"reason" json:"reason"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
