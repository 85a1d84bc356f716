package domain

import "time"

// EventType names a state change published to subscribers.
type EventType string

const (
	EventCoinUpserted  EventType = "coin.upserted"
	EventCoinDeleted   EventType = "coin.deleted"
	EventTradeOpened   EventType = "trade.opened"
	EventTradeClosed   EventType = "trade.closed"
	EventTradeUpdated  EventType = "trade.updated"
	EventTradeDeleted  EventType = "trade.deleted"
	EventTipCreated    EventType = "tip.created"
	EventTipUpdated    EventType = "tip.updated"
	EventTipDeleted    EventType = "tip.deleted"
	EventBubblesSet    EventType = "bubbles.set"
	EventScoreAppended EventType = "score.appended"
	EventContextSet    EventType = "context.set"
)

// Event is emitted after a write has committed.
type Event struct {
	Type  EventType `json:"type"`
	At    time.Time `json:"at"`
	Coin  *CoinKey  `json:"coin,omitempty"`
	Trade *Trade    `json:"trade,omitempty"`
	Tip   *Tip      `json:"tip,omitempty"`
	Score *Score    `json:"score,omitempty"`
	// Owner identifies the bubble/score owner: a trade_id, a tip_id or a ca.
	Owner string `json:"owner,omitempty"`
}
