package dto

import "time"

// DashboardStats is the headline counter block of the admin dashboard.
type DashboardStats struct {
	TotalComplaints      int `json:"totalComplaints"`
	PendingComplaints    int `json:"pendingComplaints"`
	InProgressComplaints int `json:"inProgressComplaints"`
	ResolvedComplaints   int `json:"resolvedComplaints"`
	RejectedComplaints   int `json:"rejectedComplaints"`
	TotalStudents        int `json:"totalStudents"`
}

// LabelCount is one bar or slice of a categorical chart.
type LabelCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// DayCount is one point of the daily series; Date is YYYY-MM-DD in the dashboard timezone.
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// AdminDashboard is the aggregated admin payload.
type AdminDashboard struct {
	Stats             DashboardStats `json:"stats"`
	CountsByStatus    []LabelCount   `json:"countsByStatus"`
	CountsByType      []LabelCount   `json:"countsByType"`
	Last30DaysSeries  []DayCount     `json:"last30DaysSeries"`
	AvgResolutionDays float64        `json:"avgResolutionDays"`
	GeneratedAt       time.Time      `json:"generatedAt"`
}

// StudentDashboard summarises one student's own complaints.
type StudentDashboard struct {
	Total      int                `json:"total"`
	Pending    int                `json:"pending"`
	InProgress int                `json:"inProgress"`
	Resolved   int                `json:"resolved"`
	Rejected   int                `json:"rejected"`
	Recent     []StudentRecentRow `json:"recent"`
}

type StudentRecentRow struct {
	ID            string    `json:"id"`
	CourseCode    string    `json:"courseCode"`
	ComplaintType string    `json:"complaintType"`
	Status        string    `json:"status"`
	DateSubmitted time.Time `json:"dateSubmitted"`
}
