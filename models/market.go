package models

import "time"

// MarketTransaction is an executed marketplace trade. Owned by the market
// subsystem; the objectives engine counts buys (buyer side) and sells
// (seller side) per user.
type MarketTransaction struct {
	ID         string    `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	BuyerID    string    `gorm:"index;not null" json:"buyer_id"`
	SellerID   string    `gorm:"index;not null" json:"seller_id"`
	MonsterID  string    `gorm:"index;not null" json:"monster_id"`
	Price      int64     `gorm:"not null" json:"price"` // coins
	ExecutedAt time.Time `gorm:"autoCreateTime;index" json:"executed_at"`
}
