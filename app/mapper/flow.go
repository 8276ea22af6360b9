package mapper

import (
	"time"

	"github.com/vibast-solutions/ms-go-donations/app/flow"
	"github.com/vibast-solutions/ms-go-donations/app/types"
)

func FlowToResponse(item *flow.Flow) *types.DonationFlowResponse {
	if item == nil {
		return nil
	}

	return &types.DonationFlowResponse{
		FlowID:        item.ID,
		State:         string(item.State),
		Message:       item.Message,
		TransactionID: item.TransactionID,
		Form:          item.Form,
		UpdatedAt:     item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
