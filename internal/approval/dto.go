package approval

import "errors"

// ApproveDTO is the request payload for approving the current step.
type ApproveDTO struct {
	Comments *string `json:"comments,omitempty"`
}

// RejectDTO is the request payload for rejecting the current step.
type RejectDTO struct {
	Comments string `json:"comments"`
}

func (dto RejectDTO) Validate() error {
	if dto.Comments == "" {
		return errors.New("comments are required when rejecting")
	}
	return nil
}

// PreviewDTO is the read-only "what would the approval path look like"
// response shown before submission.
type PreviewDTO struct {
	RequiresApproval bool   `json:"requires_approval"`
	RuleID           *int64 `json:"rule_id,omitempty"`
	Chain            []Step `json:"chain,omitempty"`
}
