package models

// Profile is the info/{uid} document: business identity plus the signing key registry.
type Profile struct {
	UserID         string  `bson:"uid" json:"uid"`
	CompanyName    string  `bson:"companyName" json:"companyName"`
	CompanyAddress Address `bson:"companyAddress" json:"companyAddress"`
	Location       string  `bson:"location" json:"location"`
	GSTNumber      string  `bson:"gstNumber" json:"gstNumber"`

	// PublicKeys maps keyVersion -> PKIX PEM public key.
	PublicKeys        map[string]string `bson:"publicKeys,omitempty" json:"publicKeys,omitempty"`
	CurrentKeyVersion string            `bson:"currentKeyVersion,omitempty" json:"currentKeyVersion,omitempty"`
	// PublicKey là khóa cũ không có phiên bản.
	PublicKey string `bson:"publicKey,omitempty" json:"publicKey,omitempty"`
}
