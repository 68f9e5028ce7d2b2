package handler

import "time"

type balanceResponse struct {
	Credits      int            `json:"credits"`
	CreditsLimit int            `json:"credits_limit"`
	LastReset    *time.Time     `json:"last_reset,omitempty"`
	NextReset    time.Time      `json:"next_reset"`
	Costs        map[string]int `json:"costs"`
}

type usageStatsResponse struct {
	CreditsUsed               int        `json:"credits_used"`
	CreditsRemaining          int        `json:"credits_remaining"`
	CreditsLimit              int        `json:"credits_limit"`
	PercentageUsed            int        `json:"percentage_used"`
	LastReset                 *time.Time `json:"last_reset,omitempty"`
	NextReset                 time.Time  `json:"next_reset"`
	EstimatedTextGenerations  int        `json:"estimated_text_generations"`
	EstimatedImageGenerations int        `json:"estimated_image_generations"`
}

type creditsChangedResponse struct {
	Credits int `json:"credits"`
}

type addCreditsRequest struct {
	UserID string `json:"user_id" validate:"required"`
	Amount int    `json:"amount"  validate:"required,gt=0"`
	Reason string `json:"reason"`
}
