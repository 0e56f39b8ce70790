package repository

import (
	"context"

	"approval-orchestrator/backend/pkg/models"
)

// Reporting aggregates backing the analytics endpoints. Pure reads over the
// same relations the engines own; no state-machine logic lives here.

// Overview returns workflow/approval counts and the overall average response
// time in minutes.
func (s *PostgresStore) Overview(ctx context.Context) (*models.AnalyticsOverview, error) {
	var o models.AnalyticsOverview
	row := s.db.QueryRow(ctx, `
		SELECT
			(SELECT COUNT(*) FROM workflows),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'timed_out'),
			COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (responded_at - requested_at)) / 60)
				FILTER (WHERE responded_at IS NOT NULL)), 0)::int
		FROM approval_steps`)
	if err := row.Scan(&o.TotalWorkflows, &o.TotalApprovals, &o.PendingApprovals,
		&o.ApprovedCount, &o.RejectedCount, &o.TimedOutCount, &o.AverageResponseMinutes); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx, "SELECT status, COUNT(*) FROM workflows GROUP BY status")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	o.WorkflowsByStatus = map[string]int{}
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		o.WorkflowsByStatus[status] = count
	}
	return &o, rows.Err()
}

// ResponseTimesByDay buckets average response times per day over the given
// trailing window.
func (s *PostgresStore) ResponseTimesByDay(ctx context.Context, days int) ([]models.ResponseTimeBucket, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			to_char(requested_at::date, 'YYYY-MM-DD'),
			ROUND(AVG(EXTRACT(EPOCH FROM (responded_at - requested_at)) / 60))::int,
			COUNT(*)
		FROM approval_steps
		WHERE responded_at IS NOT NULL
		  AND requested_at >= now() - make_interval(days => $1)
		GROUP BY requested_at::date
		ORDER BY requested_at::date DESC`,
		days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var buckets []models.ResponseTimeBucket
	for rows.Next() {
		var b models.ResponseTimeBucket
		if err := rows.Scan(&b.Date, &b.AverageMinutes, &b.Count); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// TopApprovers ranks approvers by recent request volume.
func (s *PostgresStore) TopApprovers(ctx context.Context, days, limit int) ([]models.ApproverStats, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			COALESCE(assigned_to, ''),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'approved'),
			COUNT(*) FILTER (WHERE status = 'rejected'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COALESCE(ROUND(AVG(EXTRACT(EPOCH FROM (responded_at - requested_at)) / 60)
				FILTER (WHERE responded_at IS NOT NULL)), 0)::int
		FROM approval_steps
		WHERE requested_at >= now() - make_interval(days => $1)
		GROUP BY assigned_to
		ORDER BY COUNT(*) DESC
		LIMIT $2`,
		days, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.ApproverStats
	for rows.Next() {
		var a models.ApproverStats
		if err := rows.Scan(&a.AssignedTo, &a.TotalApprovals, &a.ApprovedCount,
			&a.RejectedCount, &a.PendingCount, &a.AverageResponseMinutes); err != nil {
			return nil, err
		}
		stats = append(stats, a)
	}
	return stats, rows.Err()
}

// ChannelBreakdown returns the approval step distribution per channel.
func (s *PostgresStore) ChannelBreakdown(ctx context.Context) ([]models.ChannelUsage, error) {
	rows, err := s.db.Query(ctx, `
		SELECT
			channel,
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status <> 'pending')
		FROM approval_steps
		GROUP BY channel
		ORDER BY COUNT(*) DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var usage []models.ChannelUsage
	for rows.Next() {
		var u models.ChannelUsage
		if err := rows.Scan(&u.Channel, &u.Total, &u.Pending, &u.Resolved); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
