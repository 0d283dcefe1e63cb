package rp

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// maxMillisTimestamp is the upper bound for a value to be interpreted as
// milliseconds (approximately year 2286). Values at or above this threshold
// are treated as microseconds.
const maxMillisTimestamp int64 = 1e13

// EpochMillis represents a point in time serialized as an integer epoch
// timestamp. On deserialization it auto-detects whether the value is
// milliseconds or microseconds based on its magnitude. Serialization always
// produces milliseconds.
type EpochMillis time.Time

// Time returns the underlying time.Time value.
func (e EpochMillis) Time() time.Time { return time.Time(e) }

// MarshalJSON serializes EpochMillis as Unix milliseconds.
func (e EpochMillis) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(e).UnixMilli())
}

// UnmarshalJSON deserializes an integer timestamp, auto-detecting ms or us.
func (e *EpochMillis) UnmarshalJSON(data []byte) error {
	var value int64
	if err := json.Unmarshal(data, &value); err != nil {
		return fmt.Errorf("unmarshal epoch millis: %w", err)
	}
	if value >= maxMillisTimestamp {
		*e = EpochMillis(time.UnixMicro(value))
	} else {
		*e = EpochMillis(time.UnixMilli(value))
	}
	return nil
}

// FlexID is an entity identifier that Report Portal returns either as a
// string (launch and item UUIDs) or as a number (filters, widgets,
// dashboards). Numeric ids marshal back as JSON numbers.
type FlexID string

// String returns the id as text.
func (f FlexID) String() string { return string(f) }

// MarshalJSON emits integers as numbers and everything else as strings.
func (f FlexID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(f), 10, 64); err == nil {
		return json.Marshal(n)
	}
	return json.Marshal(string(f))
}

// UnmarshalJSON accepts a JSON string, number or null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("unmarshal id: %w", err)
	}
	*f = FlexID(n.String())
	return nil
}

// Status is the execution status of a launch or test item.
type Status string

const (
	StatusPassed  Status = "PASSED"
	StatusFailed  Status = "FAILED"
	StatusSkipped Status = "SKIPPED"
)

// ItemType is the kind of a test item.
type ItemType string

const (
	ItemSuite ItemType = "SUITE"
	ItemStep  ItemType = "STEP"
)

// LogLevel is the severity of a log entry.
type LogLevel string

const (
	LogDebug LogLevel = "DEBUG"
	LogInfo  LogLevel = "INFO"
	LogError LogLevel = "ERROR"
)

// IssueNotIssue is the issue locator for items that are not a defect.
const IssueNotIssue = "NOT_ISSUE"

// Merge types accepted by launch/merge.
const (
	MergeBasic = "BASIC"
	MergeDeep  = "DEEP"
)

// --- Requests ---

// Attribute is a key-value (or value-only tag) attribute on a launch or item.
type Attribute struct {
	Key   string `json:"key,omitempty"`
	Value string `json:"value"`
}

// TagAttributes turns plain tags into value-only attributes.
func TagAttributes(tags []string) []Attribute {
	if len(tags) == 0 {
		return nil
	}
	attrs := make([]Attribute, 0, len(tags))
	for _, t := range tags {
		attrs = append(attrs, Attribute{Value: t})
	}
	return attrs
}

// StartLaunchRQ is the body of POST launch.
type StartLaunchRQ struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartTime   EpochMillis `json:"startTime"`
	Attributes  []Attribute `json:"attributes,omitempty"`
	Mode        string      `json:"mode,omitempty"`
}

// FinishExecutionRQ is the body of PUT launch/{id}/finish.
type FinishExecutionRQ struct {
	EndTime EpochMillis `json:"endTime"`
	Status  Status      `json:"status,omitempty"`
}

// StartTestItemRQ is the body of POST item and POST item/{parent}.
type StartTestItemRQ struct {
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	StartTime   EpochMillis `json:"startTime"`
	Type        ItemType    `json:"type"`
	LaunchUUID  string      `json:"launchUuid"`
	Attributes  []Attribute `json:"attributes,omitempty"`
}

// FinishTestItemRQ is the body of PUT item/{id}.
type FinishTestItemRQ struct {
	EndTime    EpochMillis `json:"endTime"`
	Status     Status      `json:"status"`
	LaunchUUID string      `json:"launchUuid"`
	Issue      *Issue      `json:"issue,omitempty"`
}

// Issue is the defect classification attached to a finished item.
type Issue struct {
	IssueType string `json:"issueType"`
	Comment   string `json:"comment,omitempty"`
}

// SaveLogRQ is a log entry. File is set only for attachments.
type SaveLogRQ struct {
	LaunchUUID string      `json:"launchUuid"`
	ItemUUID   string      `json:"itemUuid,omitempty"`
	Time       EpochMillis `json:"time"`
	Message    string      `json:"message"`
	Level      LogLevel    `json:"level"`
	File       *LogFile    `json:"file,omitempty"`
}

// LogFile names the multipart part carrying an attachment.
type LogFile struct {
	Name string `json:"name"`
}

// MergeLaunchesRQ is the body of POST launch/merge.
type MergeLaunchesRQ struct {
	Description             string   `json:"description"`
	ExtendSuitesDescription bool     `json:"extendSuitesDescription"`
	Launches                []string `json:"launches"`
	MergeType               string   `json:"merge_type"`
	Mode                    string   `json:"mode"`
	Name                    string   `json:"name"`
}

// --- Responses ---

// EntryCreatedRS is returned by create/start calls.
type EntryCreatedRS struct {
	ID FlexID `json:"id"`
}

// OperationCompletionRS is returned by launch/import. Older servers use
// "msg", newer ones "message".
type OperationCompletionRS struct {
	Msg     string `json:"msg"`
	Message string `json:"message"`
}

// Text returns whichever message field the server filled.
func (o OperationCompletionRS) Text() string {
	if o.Msg != "" {
		return o.Msg
	}
	return o.Message
}

// NamedResource is the id/name projection shared by filters, widgets and dashboards.
type NamedResource struct {
	ID   FlexID `json:"id"`
	Name string `json:"name"`
}

// Page is a paginated listing.
type Page[T any] struct {
	Content []T      `json:"content"`
	Page    PageInfo `json:"page"`
}

// PageInfo holds pagination metadata.
type PageInfo struct {
	Number        int `json:"number"`
	Size          int `json:"size"`
	TotalElements int `json:"totalElements"`
	TotalPages    int `json:"totalPages"`
}

// ErrorRS is the standard RP error response shape.
type ErrorRS struct {
	ErrorCode int    `json:"errorCode"`
	Message   string `json:"message"`
}
