package bps

import (
	"context"
	"net/http"
)

// listResource fetches a collection endpoint.
func (c *Client) listResource(ctx context.Context, endpoint string) ([]map[string]any, error) {
	result, err := c.call(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return nil, err
	}
	return asList(result), nil
}

// createResource posts a configuration document to a collection endpoint.
func (c *Client) createResource(ctx context.Context, endpoint string, cfg map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPost, endpoint, cfg, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// GetNetworkElements lists all network elements.
func (c *Client) GetNetworkElements(ctx context.Context) ([]map[string]any, error) {
	return c.listResource(ctx, "network/elements")
}

// CreateNetworkElement creates a network element.
func (c *Client) CreateNetworkElement(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	return c.createResource(ctx, "network/elements", cfg)
}

// GetSuperflows lists all superflows.
func (c *Client) GetSuperflows(ctx context.Context) ([]map[string]any, error) {
	return c.listResource(ctx, "superflows")
}

// GetSuperflow fetches one superflow.
func (c *Client) GetSuperflow(ctx context.Context, superflowID string) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodGet, "superflows/"+superflowID, nil, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// CreateSuperflow creates a superflow.
func (c *Client) CreateSuperflow(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	return c.createResource(ctx, "superflows", cfg)
}

// UpdateSuperflow replaces a superflow's configuration.
func (c *Client) UpdateSuperflow(ctx context.Context, superflowID string, cfg map[string]any) (map[string]any, error) {
	result, err := c.call(ctx, http.MethodPut, "superflows/"+superflowID, cfg, nil)
	if err != nil {
		return nil, err
	}
	return asObject(result), nil
}

// GetAppProfiles lists all application profiles.
func (c *Client) GetAppProfiles(ctx context.Context) ([]map[string]any, error) {
	return c.listResource(ctx, "appprofiles")
}

// CreateAppProfile creates an application profile.
func (c *Client) CreateAppProfile(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	return c.createResource(ctx, "appprofiles", cfg)
}

// GetBandwidthComponents lists all bandwidth test components.
func (c *Client) GetBandwidthComponents(ctx context.Context) ([]map[string]any, error) {
	return c.listResource(ctx, "components/bandwidth")
}

// CreateBandwidthComponent creates a bandwidth test component.
func (c *Client) CreateBandwidthComponent(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	return c.createResource(ctx, "components/bandwidth", cfg)
}

// GetStrikeLists lists all strike lists.
func (c *Client) GetStrikeLists(ctx context.Context) ([]map[string]any, error) {
	return c.listResource(ctx, "strikelists")
}

// CreateStrikeList creates a strike list.
func (c *Client) CreateStrikeList(ctx context.Context, cfg map[string]any) (map[string]any, error) {
	return c.createResource(ctx, "strikelists", cfg)
}
