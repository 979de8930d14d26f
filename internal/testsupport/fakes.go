package testsupport

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"launchpro/internal/services/adplatform"
	"launchpro/internal/services/aigen"
	"launchpro/internal/services/approval"
	"launchpro/internal/services/designtask"
)

// FakeApproval returns canned approval results keyed by request id.
type FakeApproval struct {
	mu      sync.Mutex
	Results map[string]approval.Result
	Err     error
	Checks  []string
}

func (f *FakeApproval) Check(_ context.Context, requestID string) (approval.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Checks = append(f.Checks, requestID)
	if f.Err != nil {
		return approval.Result{}, f.Err
	}
	if result, ok := f.Results[requestID]; ok {
		return result, nil
	}
	return approval.Result{Status: approval.StatusPending}, nil
}

// FakePlatform is an in-memory adplatform.Client recording every call.
type FakePlatform struct {
	mu sync.Mutex

	PlatformName string
	NextRemoteID string
	Status       adplatform.CampaignStatus
	CreateErr    error
	StatusErr    error
	LaunchErr    error
	LaunchResult adplatform.LaunchResult

	Creates  []adplatform.CreateRequest
	Launches []string
}

// NewFakePlatform builds a fake that launches successfully by default.
func NewFakePlatform(name string) *FakePlatform {
	return &FakePlatform{
		PlatformName: name,
		NextRemoteID: "remote-" + name,
		Status:       adplatform.CampaignStatus{Status: adplatform.RemoteActive},
		LaunchResult: adplatform.LaunchResult{Success: true},
	}
}

func (f *FakePlatform) Name() string { return f.PlatformName }

func (f *FakePlatform) CreateCampaign(_ context.Context, req adplatform.CreateRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Creates = append(f.Creates, req)
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	return f.NextRemoteID, nil
}

func (f *FakePlatform) GetCampaignStatus(_ context.Context, remoteID string) (adplatform.CampaignStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.StatusErr != nil {
		return adplatform.CampaignStatus{}, f.StatusErr
	}
	return f.Status, nil
}

func (f *FakePlatform) LaunchAd(_ context.Context, remoteID string, _ adplatform.Creative) (adplatform.LaunchResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Launches = append(f.Launches, remoteID)
	if f.LaunchErr != nil {
		return adplatform.LaunchResult{}, f.LaunchErr
	}
	return f.LaunchResult, nil
}

// CreateCount returns how many create calls the fake has seen.
func (f *FakePlatform) CreateCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Creates)
}

// LaunchCount returns how many launch calls the fake has seen.
func (f *FakePlatform) LaunchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Launches)
}

// NewRegistry builds an adplatform registry from fakes.
func NewRegistry(t testing.TB, clients ...adplatform.Client) *adplatform.Registry {
	t.Helper()
	registry := &adplatform.Registry{}
	for _, client := range clients {
		if err := registry.Register(client); err != nil {
			t.Fatalf("register fake platform: %v", err)
		}
	}
	return registry
}

// FakeGenerator returns canned creative.
type FakeGenerator struct {
	mu       sync.Mutex
	Creative aigen.Creative
	Err      error
	Calls    int
}

func (f *FakeGenerator) Generate(context.Context, aigen.Briefing) (aigen.Creative, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return aigen.Creative{}, f.Err
	}
	if f.Creative.Copy == "" {
		return aigen.Creative{Copy: "generated ad copy", Keywords: []string{"offer"}}, nil
	}
	return f.Creative, nil
}

// FakeDesigns fakes the design task service.
type FakeDesigns struct {
	mu        sync.Mutex
	NextID    string
	CreateErr error
	Tasks     map[string]designtask.Task
	FetchErr  error
	Created   int
}

func (f *FakeDesigns) CreateTask(_ context.Context, campaignName, articleLink, brief string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Created++
	if f.CreateErr != nil {
		return "", f.CreateErr
	}
	if f.NextID == "" {
		return fmt.Sprintf("design-%d", f.Created), nil
	}
	return f.NextID, nil
}

func (f *FakeDesigns) GetTaskByID(_ context.Context, taskID string) (designtask.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return designtask.Task{}, f.FetchErr
	}
	if task, ok := f.Tasks[taskID]; ok {
		return task, nil
	}
	return designtask.Task{ID: taskID, Status: designtask.TaskPending}, nil
}

// Notification records one delivered notification event.
type Notification struct {
	Event    string
	Campaign string
	Detail   string
}

// RecordingNotifier captures notifications instead of sending them.
type RecordingNotifier struct {
	mu     sync.Mutex
	Events []Notification
}

func (r *RecordingNotifier) record(event, campaign, detail string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Notification{Event: event, Campaign: campaign, Detail: detail})
	return nil
}

func (r *RecordingNotifier) NotifyCampaignLive(_ context.Context, name, link string) error {
	return r.record("campaign_live", name, link)
}

func (r *RecordingNotifier) NotifyCampaignFailed(_ context.Context, name, step, reason string) error {
	return r.record("campaign_failed", name, step+": "+reason)
}

func (r *RecordingNotifier) NotifyPartialLaunch(_ context.Context, name string, launched, failed int) error {
	return r.record("partial_launch", name, fmt.Sprintf("%d/%d", launched, launched+failed))
}

func (r *RecordingNotifier) NotifyArticleRejected(_ context.Context, name, reason string) error {
	return r.record("article_rejected", name, reason)
}

func (r *RecordingNotifier) NotifyApprovalTimeout(_ context.Context, name string, age time.Duration) error {
	return r.record("approval_timeout", name, age.String())
}

func (r *RecordingNotifier) NotifyTrackingTimeout(_ context.Context, name string, attempts int) error {
	return r.record("tracking_timeout", name, fmt.Sprintf("%d", attempts))
}

func (r *RecordingNotifier) NotifyDesignReady(_ context.Context, name, link string) error {
	return r.record("design_ready", name, link)
}

func (r *RecordingNotifier) TestNotification(context.Context) error {
	return r.record("test", "", "")
}

// EventsNamed returns the captured events matching the kind.
func (r *RecordingNotifier) EventsNamed(event string) []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []Notification
	for _, n := range r.Events {
		if n.Event == event {
			matched = append(matched, n)
		}
	}
	return matched
}
