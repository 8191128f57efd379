package domain

import (
	customerdomain "github.com/cablebill/cablebill/internal/customer/domain"
	plandomain "github.com/cablebill/cablebill/internal/plan/domain"
	subscriptiondomain "github.com/cablebill/cablebill/internal/subscription/domain"
)

// Snapshot is a bill with every record needed to print or announce it.
type Snapshot struct {
	Bill         Bill                            `json:"bill"`
	Customer     customerdomain.Customer         `json:"customer"`
	Subscription subscriptiondomain.Subscription `json:"subscription"`
	Plan         plandomain.Plan                 `json:"plan"`
}
