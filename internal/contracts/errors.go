package contracts

import "errors"

var (
	// ErrNoUniverse is returned when the day's universe is empty or unavailable
	ErrNoUniverse = errors.New("universe is empty")

	// ErrMergeSetMissing is returned when the merge-set document does not exist
	ErrMergeSetMissing = errors.New("merge set document not found")

	// ErrNotTradingDay is returned by publish paths on weekends and exchange holidays
	ErrNotTradingDay = errors.New("not a trading day")

	// ErrNoPickForToday is returned when no pick run exists for the current date key
	ErrNoPickForToday = errors.New("no pick run for today")

	// ErrInsufficientHistory is returned when a symbol has too few daily bars to score
	ErrInsufficientHistory = errors.New("insufficient daily history")

	// ErrUnparseable is returned by a catalyst model whose reply carries no usable tag
	ErrUnparseable = errors.New("unparseable classifier response")
)
