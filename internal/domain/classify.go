package domain

// classify.go — string classification of backend/wallet error text.
//
// The upstream vocabulary is not formally specified and drifts; every phrase
// the engine matches on lives in the tables below so extending the mapping
// never touches a call site. This is a fragile boundary and is kept as small
// as possible on purpose.

import "strings"

var cancellationPhrases = []string{
	"user rejected",
	"user declined",
	"user cancelled",
	"user canceled",
	"cancelled by user",
	"canceled by user",
	"request declined",
	"dismissed",
}

var staleAuthPhrases = []string{
	"auth_token not valid",
	"auth token not valid",
	"invalid auth_token",
	"reauthorize",
	"authorization expired",
}

var alreadySettledPhrases = []string{
	"already claimed",
	"already settled",
	"already burned",
	"position not found",
	"asset not found",
	"account does not exist",
	"no record of a prior credit",
}

// ClassifySigningError maps raw wallet-provider error text onto the signing
// taxonomy: ErrSigningCancelled, ErrWalletAuthStale, or ErrSigningFailed.
func ClassifySigningError(text string) error {
	lower := strings.ToLower(text)
	for _, p := range cancellationPhrases {
		if strings.Contains(lower, p) {
			return ErrSigningCancelled
		}
	}
	for _, p := range staleAuthPhrases {
		if strings.Contains(lower, p) {
			return ErrWalletAuthStale
		}
	}
	return ErrSigningFailed
}

// IsAlreadySettled reports whether raw backend/ledger error text means the
// receipt is already gone server-side.
func IsAlreadySettled(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range alreadySettledPhrases {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
