package models

// AnalyticsOverview aggregates workflow and approval counts for the
// dashboard. Presentation-only; carries no invariants of its own.
type AnalyticsOverview struct {
	TotalWorkflows         int            `json:"total_workflows"`
	TotalApprovals         int            `json:"total_approvals"`
	PendingApprovals       int            `json:"pending_approvals"`
	ApprovedCount          int            `json:"approved_count"`
	RejectedCount          int            `json:"rejected_count"`
	TimedOutCount          int            `json:"timed_out_count"`
	AverageResponseMinutes int            `json:"average_response_minutes"`
	WorkflowsByStatus      map[string]int `json:"workflows_by_status"`
}

// ResponseTimeBucket is the average approval response time for one day.
type ResponseTimeBucket struct {
	Date           string `json:"date"`
	AverageMinutes int    `json:"average_minutes"`
	Count          int    `json:"count"`
}

// ApproverStats summarizes one approver's recent activity.
type ApproverStats struct {
	AssignedTo             string `json:"assigned_to"`
	TotalApprovals         int    `json:"total_approvals"`
	ApprovedCount          int    `json:"approved_count"`
	RejectedCount          int    `json:"rejected_count"`
	PendingCount           int    `json:"pending_count"`
	AverageResponseMinutes int    `json:"average_response_minutes"`
}

// ChannelUsage is the approval step distribution for one delivery channel.
type ChannelUsage struct {
	Channel  Channel `json:"channel"`
	Total    int     `json:"total"`
	Pending  int     `json:"pending"`
	Resolved int     `json:"resolved"`
}
