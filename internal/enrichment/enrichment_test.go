package enrichment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/erc8004/agent-gateway/internal/chainsdk"
	"github.com/erc8004/agent-gateway/internal/circuitbreaker"
	"github.com/erc8004/agent-gateway/internal/ipfsgw"
	"github.com/erc8004/agent-gateway/internal/model"
	"github.com/erc8004/agent-gateway/internal/queue"
	"github.com/erc8004/agent-gateway/internal/repository"
)

type fakeRegistry struct {
	detail *chainsdk.AgentDetail
	err    error
}

func (f *fakeRegistry) ListAgents(ctx context.Context, filters chainsdk.ListFilters, cursor string) ([]chainsdk.AgentDetail, string, error) {
	return nil, "", nil
}
func (f *fakeRegistry) GetAgent(ctx context.Context, chainID int64, tokenID string) (*chainsdk.AgentDetail, error) {
	return f.detail, f.err
}
func (f *fakeRegistry) ChainStats(ctx context.Context) ([]model.ChainStat, error) { return nil, nil }

type fakeClassificationLookup struct {
	byAgent  map[string]*model.Classification
	existing map[string]bool
}

func (f *fakeClassificationLookup) GetByAgentID(ctx context.Context, agentID string) (*model.Classification, error) {
	c, ok := f.byAgent[agentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

func (f *fakeClassificationLookup) ExistsForAgents(ctx context.Context, agentIDs []string) (map[string]bool, error) {
	return f.existing, nil
}

type fakeReputationLookup struct {
	byAgent map[string]*model.Reputation
}

func (f *fakeReputationLookup) GetByAgentID(ctx context.Context, agentID string) (*model.Reputation, error) {
	rep, ok := f.byAgent[agentID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rep, nil
}

type fakePublisher struct {
	enqueued []queue.ClassificationJobMessage
}

func (f *fakePublisher) Enqueue(ctx context.Context, msg queue.ClassificationJobMessage) error {
	f.enqueued = append(f.enqueued, msg)
	return nil
}
func (f *fakePublisher) Close() error { return nil }

func testBreaker() *circuitbreaker.Breaker {
	reg := prometheus.NewRegistry()
	return circuitbreaker.New("chain-test", circuitbreaker.Config{}, circuitbreaker.NewMetrics(reg))
}

func TestGetAgentDetail_AssemblesFromAllSources(t *testing.T) {
	ipfsServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ipfsgw.Metadata{Image: "ipfs-image.png", Description: "from ipfs"})
	}))
	defer ipfsServer.Close()

	registry := &fakeRegistry{detail: &chainsdk.AgentDetail{
		Summary:     model.AgentSummary{ID: "1:1", ChainID: 1, TokenID: "1", Name: "Agent One"},
		MetadataURI: "ipfs://fake-cid",
		InputModes:  []string{"text"},
		OutputModes: []string{"text"},
	}}
	classification := &fakeClassificationLookup{byAgent: map[string]*model.Classification{
		"1:1": {AgentID: "1:1", Skills: []model.ClassificationItem{{Slug: "data-analysis", Confidence: 0.9}}, Confidence: 0.9},
	}}
	reputation := &fakeReputationLookup{byAgent: map[string]*model.Reputation{
		"1:1": {AgentID: "1:1", AverageScore: 88},
	}}

	svc := &Service{
		Registry:       registry,
		IPFS:           ipfsgw.New(ipfsServer.URL+"/", time.Second),
		Classification: classification,
		Reputation:     reputation,
		ChainBreaker:   testBreaker(),
	}

	detail, err := svc.GetAgentDetail(context.Background(), 1, "1")
	if err != nil {
		t.Fatalf("GetAgentDetail: %v", err)
	}
	if detail.Image != "ipfs-image.png" {
		t.Errorf("Image = %q, want ipfs-image.png", detail.Image)
	}
	if detail.OASFSource != model.OASFSourceLLM {
		t.Errorf("OASFSource = %q, want %q", detail.OASFSource, model.OASFSourceLLM)
	}
	if detail.ReputationScore == nil || *detail.ReputationScore != 88 {
		t.Errorf("ReputationScore = %v, want 88", detail.ReputationScore)
	}
}

func TestGetAgentDetail_DegradesWhenIPFSAndClassificationMissing(t *testing.T) {
	registry := &fakeRegistry{detail: &chainsdk.AgentDetail{
		Summary: model.AgentSummary{ID: "1:2", ChainID: 1, TokenID: "2", Name: "Agent Two"},
	}}
	svc := &Service{
		Registry:       registry,
		Classification: &fakeClassificationLookup{byAgent: map[string]*model.Classification{}},
		Reputation:     &fakeReputationLookup{byAgent: map[string]*model.Reputation{}},
		ChainBreaker:   testBreaker(),
	}

	detail, err := svc.GetAgentDetail(context.Background(), 1, "2")
	if err != nil {
		t.Fatalf("GetAgentDetail: %v", err)
	}
	if detail.OASF != nil {
		t.Errorf("OASF = %+v, want nil", detail.OASF)
	}
	if detail.ReputationScore != nil {
		t.Errorf("ReputationScore = %v, want nil", detail.ReputationScore)
	}
}

func TestGetAgentDetail_NotFoundWhenRegistryHasNoRecord(t *testing.T) {
	svc := &Service{
		Registry:     &fakeRegistry{detail: nil},
		ChainBreaker: testBreaker(),
	}

	_, err := svc.GetAgentDetail(context.Background(), 1, "999")
	if err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestEnqueueUnclassified_CapsAtTenAndSkipsExisting(t *testing.T) {
	summaries := make([]model.AgentSummary, 0, 12)
	existing := map[string]bool{}
	for i := 0; i < 12; i++ {
		id := "1:" + string(rune('a'+i))
		summaries = append(summaries, model.AgentSummary{ID: id, OASFSource: model.OASFSourceNone})
	}
	existing[summaries[0].ID] = true // already has a classification record

	classification := &fakeClassificationLookup{existing: existing}
	pub := &fakePublisher{}
	svc := &Service{Classification: classification, Publisher: pub}

	svc.EnqueueUnclassified(context.Background(), summaries)

	if len(pub.enqueued) != maxBackgroundClassifications {
		t.Fatalf("enqueued %d jobs, want %d", len(pub.enqueued), maxBackgroundClassifications)
	}
	for _, msg := range pub.enqueued {
		if msg.AgentID == summaries[0].ID {
			t.Errorf("expected already-existing agent %q to be skipped", summaries[0].ID)
		}
	}
}

func TestEnqueueUnclassified_SkipsAlreadyClassified(t *testing.T) {
	summaries := []model.AgentSummary{
		{ID: "1:1", OASFSource: model.OASFSourceLLM},
		{ID: "1:2", OASFSource: model.OASFSourceNone},
	}
	classification := &fakeClassificationLookup{existing: map[string]bool{}}
	pub := &fakePublisher{}
	svc := &Service{Classification: classification, Publisher: pub}

	svc.EnqueueUnclassified(context.Background(), summaries)

	if len(pub.enqueued) != 1 || pub.enqueued[0].AgentID != "1:2" {
		t.Fatalf("enqueued = %+v, want only 1:2", pub.enqueued)
	}
}
