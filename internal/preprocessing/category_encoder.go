package preprocessing

import (
	"fmt"
	"sort"
)

// UnknownPolicy decides what happens to a category not seen during Fit.
type UnknownPolicy int

const (
	// UnknownBucket maps unseen categories to a reserved code one past the
	// last fitted category; one-hot output leaves every indicator at zero.
	UnknownBucket UnknownPolicy = iota
	// UnknownError refuses to transform unseen categories.
	UnknownError
)

// ParseUnknownPolicy accepts "bucket" and "error".
func ParseUnknownPolicy(s string) (UnknownPolicy, error) {
	switch s {
	case "", "bucket":
		return UnknownBucket, nil
	case "error":
		return UnknownError, nil
	default:
		return UnknownBucket, fmt.Errorf("unknown category policy %q", s)
	}
}

func (p UnknownPolicy) String() string {
	if p == UnknownError {
		return "error"
	}
	return "bucket"
}

// CategoryEncoder maps category strings to stable integer codes. Codes follow
// the sorted order of the categories seen during Fit, so two encoders fitted
// on the same values agree regardless of row order.
type CategoryEncoder struct {
	ClassToInt map[string]int
	IntToClass []string
	IsFitted   bool
}

func NewCategoryEncoder() *CategoryEncoder {
	return &CategoryEncoder{
		ClassToInt: make(map[string]int),
		IsFitted:   false,
	}
}

// Fit learns the categories. Missing values (empty strings) are not categories.
func (ce *CategoryEncoder) Fit(values []string) {
	unique := make(map[string]bool)
	for _, v := range values {
		if v != "" {
			unique[v] = true
		}
	}

	ce.IntToClass = make([]string, 0, len(unique))
	for v := range unique {
		ce.IntToClass = append(ce.IntToClass, v)
	}
	sort.Strings(ce.IntToClass)

	ce.ClassToInt = make(map[string]int, len(ce.IntToClass))
	for i, v := range ce.IntToClass {
		ce.ClassToInt[v] = i
	}
	ce.IsFitted = true
}

// Len returns the number of fitted categories.
func (ce *CategoryEncoder) Len() int { return len(ce.IntToClass) }

// UnknownCode is the reserved code for unseen and missing values.
func (ce *CategoryEncoder) UnknownCode() int { return len(ce.IntToClass) }

// Code returns the code for v and whether v was seen during Fit.
func (ce *CategoryEncoder) Code(v string) (int, bool) {
	code, ok := ce.ClassToInt[v]
	if !ok {
		return ce.UnknownCode(), false
	}
	return code, true
}

// Transform encodes values. Unseen values take the reserved code; with
// UnknownError they fail instead. Missing values always take the reserved code.
func (ce *CategoryEncoder) Transform(values []string, policy UnknownPolicy) ([]int, error) {
	if !ce.IsFitted {
		return nil, fmt.Errorf("CategoryEncoder must be fitted before transform")
	}

	result := make([]int, len(values))
	for i, v := range values {
		code, ok := ce.Code(v)
		if !ok && v != "" && policy == UnknownError {
			return nil, fmt.Errorf("unknown category: %s", v)
		}
		result[i] = code
	}
	return result, nil
}

func (ce *CategoryEncoder) FitTransform(values []string) ([]int, error) {
	ce.Fit(values)
	return ce.Transform(values, UnknownBucket)
}
