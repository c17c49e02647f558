package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLockHeld          = errors.New("lock already held")
	ErrLockBusy          = errors.New("lock busy, retry later")
	ErrTradeNotPending   = errors.New("trade is not pending")
	ErrTradeExpired      = errors.New("trade expired")
	ErrNotParticipant    = errors.New("requester is not a trade participant")
	ErrSelfTrade         = errors.New("trade participants must differ")
	ErrEmptyTrade        = errors.New("trade offers nothing on either side")
	ErrCardNotOwned      = errors.New("card not owned by offering participant")
	ErrInsufficientGold  = errors.New("insufficient gold balance")
	ErrAlreadyCaptured   = errors.New("payment already captured")
	ErrNotAuthorized     = errors.New("payment is not in authorized state")
	ErrNotCapturable     = errors.New("payment reference not capturable")
	ErrNotVoidable       = errors.New("payment reference not voidable")
	ErrNotRefundable     = errors.New("charge not refundable")
	ErrReviewClosed      = errors.New("listing review is already closed")
	ErrStatusConflict    = errors.New("status changed concurrently, re-read required")
	ErrListingNotLive    = errors.New("listing is not approved for sale")
)
