package transaction

import "errors"

var (
	ErrNotFound                = errors.New("transaction not found")
	ErrUserNotFound            = errors.New("user not found")
	ErrRelatedNotFound         = errors.New("related transaction not found")
	ErrInsufficientBalance     = errors.New("insufficient point balance")
	ErrAlreadyProcessed        = errors.New("redemption already processed")
	ErrNotRedemption           = errors.New("transaction is not a redemption")
	ErrNotPurchase             = errors.New("transaction is not a purchase")
	ErrSelfTransfer            = errors.New("cannot transfer points to yourself")
	ErrUserNotVerified         = errors.New("user is not verified")
	ErrPromotionNotFound       = errors.New("promotion not found")
	ErrPromotionNotApplicable  = errors.New("promotion not applicable to this purchase")
	ErrPromotionAlreadyUsed    = errors.New("promotion already used by this user")
	ErrEventNotFound           = errors.New("event not found")
	ErrNotGuest                = errors.New("user is not a guest of this event")
	ErrInsufficientEventBudget = errors.New("insufficient remaining event points")
)
