package builder

import (
	"context"
	"testing"

	"github.com/minhdang/bpagent/internal/core/errs"
)

// captureAPI records the last config posted and echoes it back.
type captureAPI struct {
	lastConfig map[string]any
}

func (c *captureAPI) CreateTest(ctx context.Context, config map[string]any) (map[string]any, error) {
	c.lastConfig = config
	return map[string]any{"id": "test-1"}, nil
}

func TestCreateStrikeTest(t *testing.T) {
	api := &captureAPI{}
	b := NewTestBuilder(api, nil)

	topo := NewTopology()
	topo.AddClientNetwork("c", "10.0.0.0/24", 10)

	created, err := b.CreateStrikeTest(context.Background(), StrikeTestOptions{
		Name:         "perimeter",
		StrikeListID: "sl-9",
		Topology:     topo,
	})
	if err != nil {
		t.Fatalf("CreateStrikeTest: %v", err)
	}
	if created["id"] != "test-1" {
		t.Errorf("unexpected response: %v", created)
	}

	cfg := api.lastConfig
	if cfg["type"] != "strike" || cfg["name"] != "perimeter" {
		t.Errorf("unexpected config: %v", cfg)
	}
	if cfg["duration"] != 60 {
		t.Errorf("expected default duration 60, got %v", cfg["duration"])
	}
	strike, _ := cfg["strikeConfig"].(map[string]any)
	if strike["strikeListId"] != "sl-9" || strike["evasionProfile"] != "Default" {
		t.Errorf("unexpected strike config: %v", strike)
	}
	if cfg["networkConfig"] == nil {
		t.Error("expected networkConfig")
	}
}

func TestCreateTestValidatesTopology(t *testing.T) {
	b := NewTestBuilder(&captureAPI{}, nil)

	_, err := b.CreateStrikeTest(context.Background(), StrikeTestOptions{
		Name:         "bad",
		StrikeListID: "sl-1",
		Topology:     NewTopology(), // no client networks
	})
	if errs.KindOf(err) != errs.KindValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCreateAppSimTestDefaults(t *testing.T) {
	api := &captureAPI{}
	b := NewTestBuilder(api, nil)

	topo := NewTopology()
	topo.AddClientNetwork("c", "10.0.0.0/24", 10)

	if _, err := b.CreateAppSimTest(context.Background(), AppSimTestOptions{
		Name: "apps", AppProfileID: "ap-1", Topology: topo,
	}); err != nil {
		t.Fatalf("CreateAppSimTest: %v", err)
	}

	app, _ := api.lastConfig["appConfig"].(map[string]any)
	if app["rate"] != 100 || app["rateMode"] != "mbps" || app["rateModeEnabled"] != true {
		t.Errorf("unexpected app config: %v", app)
	}
}

func TestCreateClientSimTestDefaults(t *testing.T) {
	api := &captureAPI{}
	b := NewTestBuilder(api, nil)

	topo := NewTopology()
	topo.AddClientNetwork("c", "10.0.0.0/24", 10)

	if _, err := b.CreateClientSimTest(context.Background(), ClientSimTestOptions{
		Name: "clients", ClientProfileID: "cp-1", Topology: topo, Duration: 120,
	}); err != nil {
		t.Fatalf("CreateClientSimTest: %v", err)
	}

	cfg := api.lastConfig
	if cfg["duration"] != 120 {
		t.Errorf("expected duration 120, got %v", cfg["duration"])
	}
	client, _ := cfg["clientConfig"].(map[string]any)
	if client["concurrent"] != 1000 || client["tps"] != 1000 {
		t.Errorf("unexpected client config: %v", client)
	}
}

func TestCreateBandwidthTestDefaults(t *testing.T) {
	api := &captureAPI{}
	b := NewTestBuilder(api, nil)

	topo := NewTopology()
	topo.AddClientNetwork("c", "10.0.0.0/24", 10)

	if _, err := b.CreateBandwidthTest(context.Background(), BandwidthTestOptions{
		Name: "bw", ComponentID: "bc-1", Topology: topo,
	}); err != nil {
		t.Fatalf("CreateBandwidthTest: %v", err)
	}

	bw, _ := api.lastConfig["bandwidthConfig"].(map[string]any)
	if bw["rate"] != 1000 || bw["frameSize"] != 1024 || bw["bufferSize"] != 65536 {
		t.Errorf("unexpected bandwidth defaults: %v", bw)
	}
	if bw["direction"] != "bidirectional" || bw["loadType"] != "constant" {
		t.Errorf("unexpected traffic shape: %v", bw)
	}
}

func TestCreateAdvancedSecurityTestDefaults(t *testing.T) {
	api := &captureAPI{}
	b := NewTestBuilder(api, nil)

	if _, err := b.CreateAdvancedSecurityTest(context.Background(), SecurityTestOptions{
		Name:          "multi",
		StrikeListIDs: []string{"sl-1", "sl-2"},
	}); err != nil {
		t.Fatalf("CreateAdvancedSecurityTest: %v", err)
	}

	cfg := api.lastConfig
	if cfg["type"] != "security" {
		t.Errorf("unexpected type: %v", cfg["type"])
	}
	// Nil topology gets the minimal default and must still validate.
	if cfg["networkConfig"] == nil {
		t.Error("expected default topology")
	}

	sec, _ := cfg["securityConfig"].(map[string]any)
	components, _ := sec["strikeComponents"].([]map[string]any)
	if len(components) != 2 {
		t.Fatalf("expected 2 strike components, got %v", sec["strikeComponents"])
	}
	if components[0]["strikeListId"] != "sl-1" || components[0]["weight"] != 1 {
		t.Errorf("unexpected component: %v", components[0])
	}
	targets, _ := sec["targets"].([]map[string]any)
	if len(targets) != 1 || targets[0]["targetType"] != "allHosts" {
		t.Errorf("expected default all-hosts target, got %v", sec["targets"])
	}
	if sec["concurrentStrikes"] != 1 || sec["randomSeed"] != 1 {
		t.Errorf("unexpected security defaults: %v", sec)
	}
}
