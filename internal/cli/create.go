package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/minhdang/bpagent/internal/builder"
)

var (
	testName     string
	topologyPath string
	testDuration int
	testRate     int
)

var createTestCmd = &cobra.Command{
	Use:   "create-test",
	Short: "Create a test on the appliance",
}

var createStrikeCmd = &cobra.Command{
	Use:   "strike <strike-list-id>",
	Short: "Create a strike test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			topology, err := loadTopologyFlag()
			if err != nil {
				return err
			}
			test, err := a.builder().CreateStrikeTest(ctx, builder.StrikeTestOptions{
				Name:         testName,
				StrikeListID: args[0],
				Topology:     topology,
				Duration:     testDuration,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created test %s\n", anyString(test["id"]))
			return nil
		})
	},
}

var createAppSimCmd = &cobra.Command{
	Use:   "appsim <app-profile-id>",
	Short: "Create an application simulation test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			topology, err := loadTopologyFlag()
			if err != nil {
				return err
			}
			test, err := a.builder().CreateAppSimTest(ctx, builder.AppSimTestOptions{
				Name:         testName,
				AppProfileID: args[0],
				Topology:     topology,
				Duration:     testDuration,
				RateMbps:     testRate,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created test %s\n", anyString(test["id"]))
			return nil
		})
	},
}

var createClientSimCmd = &cobra.Command{
	Use:   "clientsim <client-profile-id>",
	Short: "Create a client simulation test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			topology, err := loadTopologyFlag()
			if err != nil {
				return err
			}
			test, err := a.builder().CreateClientSimTest(ctx, builder.ClientSimTestOptions{
				Name:            testName,
				ClientProfileID: args[0],
				Topology:        topology,
				Duration:        testDuration,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created test %s\n", anyString(test["id"]))
			return nil
		})
	},
}

var createBandwidthCmd = &cobra.Command{
	Use:   "bandwidth <component-id>",
	Short: "Create a bandwidth test",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			topology, err := loadTopologyFlag()
			if err != nil {
				return err
			}
			test, err := a.builder().CreateBandwidthTest(ctx, builder.BandwidthTestOptions{
				Name:        testName,
				ComponentID: args[0],
				Topology:    topology,
				Duration:    testDuration,
				RateMbps:    testRate,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created test %s\n", anyString(test["id"]))
			return nil
		})
	},
}

var createSecurityCmd = &cobra.Command{
	Use:   "security <strike-list-id>...",
	Short: "Create an advanced security test over several strike lists",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			var topology *builder.NetworkTopology
			if topologyPath != "" {
				var err error
				topology, err = builder.LoadTopology(topologyPath)
				if err != nil {
					return err
				}
			}
			test, err := a.builder().CreateAdvancedSecurityTest(ctx, builder.SecurityTestOptions{
				Name:          testName,
				StrikeListIDs: args,
				Topology:      topology,
				Duration:      testDuration,
			})
			if err != nil {
				return err
			}
			fmt.Printf("Created test %s\n", anyString(test["id"]))
			return nil
		})
	},
}

var createSuperflowCmd = &cobra.Command{
	Use:   "superflow <name> <protocol>",
	Short: "Create a basic superflow (HTTP and FTP get default actions)",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withClient(cmd.Context(), func(ctx context.Context, a *app) error {
			flow, err := a.superflows().CreateBasicSuperflow(ctx, args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Printf("Created superflow %s\n", anyString(flow["id"]))
			return nil
		})
	},
}

// loadTopologyFlag reads the --topology file, or builds the minimal
// client/server default used by ad-hoc tests.
func loadTopologyFlag() (*builder.NetworkTopology, error) {
	if topologyPath != "" {
		return builder.LoadTopology(topologyPath)
	}
	t := builder.NewTopology()
	t.AddClientNetwork("Client-Net-1", "10.10.1.0/24", 100)
	t.AddServerNetwork("Server-Net-1", "10.20.1.0/24", 10)
	return t, nil
}

func init() {
	createTestCmd.PersistentFlags().StringVar(&testName, "name", "bpagent test", "test name")
	createTestCmd.PersistentFlags().StringVar(&topologyPath, "topology", "", "topology JSON file (defaults to a minimal client/server topology)")
	createTestCmd.PersistentFlags().IntVar(&testDuration, "duration", 60, "test duration in seconds")
	createTestCmd.PersistentFlags().IntVar(&testRate, "rate", 0, "traffic rate in mbps where applicable")

	createTestCmd.AddCommand(createStrikeCmd, createAppSimCmd, createClientSimCmd, createBandwidthCmd, createSecurityCmd)
	rootCmd.AddCommand(createTestCmd, createSuperflowCmd)
}
