package builder

import (
	"context"
	"log/slog"
)

// TestAPI is the slice of the API client the builders need.
type TestAPI interface {
	CreateTest(ctx context.Context, config map[string]any) (map[string]any, error)
}

// TestBuilder assembles test configurations and posts them.
type TestBuilder struct {
	api TestAPI
	log *slog.Logger
}

// NewTestBuilder creates a builder on top of an API client.
func NewTestBuilder(api TestAPI, logger *slog.Logger) *TestBuilder {
	if logger == nil {
		logger = slog.Default()
	}
	return &TestBuilder{api: api, log: logger}
}

// StrikeTestOptions configures CreateStrikeTest.
type StrikeTestOptions struct {
	Name         string
	StrikeListID string
	Topology     *NetworkTopology
	Duration     int // seconds, defaults to 60
}

// CreateStrikeTest creates a security strike test.
func (b *TestBuilder) CreateStrikeTest(ctx context.Context, opts StrikeTestOptions) (map[string]any, error) {
	if err := opts.Topology.Validate(); err != nil {
		return nil, err
	}
	config := map[string]any{
		"name":          opts.Name,
		"type":          "strike",
		"duration":      durationOrDefault(opts.Duration),
		"networkConfig": opts.Topology.ToDoc(),
		"strikeConfig": map[string]any{
			"strikeListId":   opts.StrikeListID,
			"evasionProfile": "Default",
		},
	}
	b.log.Debug("creating strike test", "name", opts.Name, "strike_list", opts.StrikeListID)
	return b.api.CreateTest(ctx, config)
}

// AppSimTestOptions configures CreateAppSimTest.
type AppSimTestOptions struct {
	Name         string
	AppProfileID string
	Topology     *NetworkTopology
	Duration     int
	RateMbps     int // defaults to 100
}

// CreateAppSimTest creates an application simulation test.
func (b *TestBuilder) CreateAppSimTest(ctx context.Context, opts AppSimTestOptions) (map[string]any, error) {
	if err := opts.Topology.Validate(); err != nil {
		return nil, err
	}
	rate := opts.RateMbps
	if rate <= 0 {
		rate = 100
	}
	config := map[string]any{
		"name":          opts.Name,
		"type":          "appsim",
		"duration":      durationOrDefault(opts.Duration),
		"networkConfig": opts.Topology.ToDoc(),
		"appConfig": map[string]any{
			"appProfileId":    opts.AppProfileID,
			"rateModeEnabled": true,
			"rateMode":        "mbps",
			"rate":            rate,
		},
	}
	b.log.Debug("creating appsim test", "name", opts.Name, "app_profile", opts.AppProfileID)
	return b.api.CreateTest(ctx, config)
}

// ClientSimTestOptions configures CreateClientSimTest.
type ClientSimTestOptions struct {
	Name            string
	ClientProfileID string
	Topology        *NetworkTopology
	Duration        int
}

// CreateClientSimTest creates a client simulation test with default
// connection rates.
func (b *TestBuilder) CreateClientSimTest(ctx context.Context, opts ClientSimTestOptions) (map[string]any, error) {
	if err := opts.Topology.Validate(); err != nil {
		return nil, err
	}
	config := map[string]any{
		"name":          opts.Name,
		"type":          "clientsim",
		"duration":      durationOrDefault(opts.Duration),
		"networkConfig": opts.Topology.ToDoc(),
		"clientConfig": map[string]any{
			"clientProfileId": opts.ClientProfileID,
			"concurrent":      1000,
			"open":            50000,
			"close":           50000,
			"tps":             1000,
		},
	}
	b.log.Debug("creating clientsim test", "name", opts.Name, "client_profile", opts.ClientProfileID)
	return b.api.CreateTest(ctx, config)
}

// BandwidthTestOptions configures CreateBandwidthTest.
type BandwidthTestOptions struct {
	Name        string
	ComponentID string
	Topology    *NetworkTopology
	Duration    int
	RateMbps    int // defaults to 1000
	FrameSize   int // bytes, defaults to 1024
	BufferSize  int // bytes, defaults to 65536
}

// CreateBandwidthTest creates a raw bandwidth test.
func (b *TestBuilder) CreateBandwidthTest(ctx context.Context, opts BandwidthTestOptions) (map[string]any, error) {
	if err := opts.Topology.Validate(); err != nil {
		return nil, err
	}
	rate, frame, buffer := opts.RateMbps, opts.FrameSize, opts.BufferSize
	if rate <= 0 {
		rate = 1000
	}
	if frame <= 0 {
		frame = 1024
	}
	if buffer <= 0 {
		buffer = 65536
	}
	config := map[string]any{
		"name":          opts.Name,
		"type":          "bandwidth",
		"duration":      durationOrDefault(opts.Duration),
		"networkConfig": opts.Topology.ToDoc(),
		"bandwidthConfig": map[string]any{
			"componentId": opts.ComponentID,
			"rate":        rate,
			"rateUnit":    "mbps",
			"frameSize":   frame,
			"bufferSize":  buffer,
			"direction":   "bidirectional",
			"loadType":    "constant",
		},
	}
	b.log.Debug("creating bandwidth test", "name", opts.Name, "component", opts.ComponentID)
	return b.api.CreateTest(ctx, config)
}

// SecurityTestOptions configures CreateAdvancedSecurityTest.
type SecurityTestOptions struct {
	Name              string
	StrikeListIDs     []string
	EvasionProfile    string // defaults to "Default"
	Topology          *NetworkTopology
	Duration          int
	ConcurrentStrikes int // defaults to 1
	RandomSeed        int // defaults to 1
	Targets           []map[string]any
}

// CreateAdvancedSecurityTest creates a security test spanning multiple
// strike lists. A nil topology gets a minimal client/server default and
// absent targets default to all hosts in both directions.
func (b *TestBuilder) CreateAdvancedSecurityTest(ctx context.Context, opts SecurityTestOptions) (map[string]any, error) {
	topology := opts.Topology
	if topology == nil {
		topology = NewTopology()
		topology.AddClientNetwork("Client-Net-1", "10.10.1.0/24", 100)
		topology.AddServerNetwork("Server-Net-1", "10.20.1.0/24", 10)
	}
	if err := topology.Validate(); err != nil {
		return nil, err
	}

	evasion := opts.EvasionProfile
	if evasion == "" {
		evasion = "Default"
	}
	concurrent := opts.ConcurrentStrikes
	if concurrent <= 0 {
		concurrent = 1
	}
	seed := opts.RandomSeed
	if seed <= 0 {
		seed = 1
	}
	targets := opts.Targets
	if len(targets) == 0 {
		targets = []map[string]any{{
			"targetType": "allHosts",
			"direction":  "both",
		}}
	}

	components := make([]map[string]any, 0, len(opts.StrikeListIDs))
	for _, id := range opts.StrikeListIDs {
		components = append(components, map[string]any{
			"strikeListId":   id,
			"evasionProfile": evasion,
			"weight":         1,
		})
	}

	config := map[string]any{
		"name":          opts.Name,
		"type":          "security",
		"duration":      durationOrDefault(opts.Duration),
		"networkConfig": topology.ToDoc(),
		"securityConfig": map[string]any{
			"strikeComponents":  components,
			"concurrentStrikes": concurrent,
			"randomSeed":        seed,
			"targets":           targets,
			"options": map[string]any{
				"enableTcpRst":         true,
				"enableUniqueMac":      true,
				"disableArpResolution": false,
			},
		},
	}
	b.log.Debug("creating security test", "name", opts.Name, "strike_lists", len(opts.StrikeListIDs))
	return b.api.CreateTest(ctx, config)
}

func durationOrDefault(d int) int {
	if d <= 0 {
		return 60
	}
	return d
}
