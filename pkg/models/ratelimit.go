package models

// RateCounter is the number of actions a moderator performed in one UTC day.
type RateCounter struct {
	TenantID string `bson:"guild_id" json:"guild_id"`
	ActorID  string `bson:"moderator_id" json:"moderator_id"`
	Category string `bson:"action" json:"action"`
	Date     string `bson:"date" json:"date"`
	Count    int    `bson:"count" json:"count"`
}
