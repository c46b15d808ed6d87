package core

import "time"

const (
	AppraisalRoleAppraisee = "appraisee"
	AppraisalRoleAppraiser = "appraiser"
	AppraisalRoleHR        = "hr"
	AppraisalRoleOther     = "other"

	EmployeeStatusActive = "active"
)

var AppraisalRoles = []string{AppraisalRoleAppraisee, AppraisalRoleAppraiser, AppraisalRoleHR, AppraisalRoleOther}

type Employee struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"userId"`
	Code               string     `json:"code"`
	FirstName          string     `json:"firstName"`
	LastName           string     `json:"lastName"`
	Email              string     `json:"email"`
	JobTitle           string     `json:"jobTitle"`
	Grade              string     `json:"grade"`
	Division           string     `json:"division"`
	Location           string     `json:"location"`
	SupervisorID       string     `json:"supervisorId"`
	JoiningDate        *time.Time `json:"joiningDate,omitempty"`
	ReviewDateFrom     *time.Time `json:"reviewDateFrom,omitempty"`
	ReviewDateTo       *time.Time `json:"reviewDateTo,omitempty"`
	LastPromotionYear  string     `json:"lastPromotionYear"`
	HighestEducation   string     `json:"highestEducation"`
	AssessmentLastYear string     `json:"assessmentLastYear"`
	AppraisalRole      string     `json:"appraisalRole"`
	Status             string     `json:"status"`
	LengthOfService    string     `json:"lengthOfService"`
	OverallRating      float64    `json:"overallRating"`
	CreatedAt          time.Time  `json:"createdAt"`
	UpdatedAt          time.Time  `json:"updatedAt"`
}
