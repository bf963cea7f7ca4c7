package domain

// OrderIntent is the final output of the signal pipeline: a fully-sized order
// request handed to the execution collaborator. Created once per accepted
// signal and not retained after submission.
type OrderIntent struct {
	Symbol     string
	Action     Action  // Buy or Sell, never Hold
	Volume     float64 // lot size
	EntryPrice float64 // reference price the TP/SL levels were derived from
	TPPrice    float64 // take-profit level, on the profit side of entry
	SLPrice    float64 // stop-loss level, on the loss side of entry
	Confidence float64 // confidence of the decision that produced the intent
}
