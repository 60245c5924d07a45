package aad

import (
	"context"
	"fmt"
	"strings"

	"github.com/stormspotter-go/stormspotter/internal/utils"
)

const getByIDsBatchSize = 1000

// getByIDsRequest is the Microsoft Graph directoryObjects/getByIds body.
type getByIDsRequest struct {
	IDs []string `json:"ids"`
}

type getByIDsResponse struct {
	Value []map[string]any `json:"value"`
	Error map[string]any   `json:"error"`
}

// ResolveClasses batches principalIDs through
// directoryObjects/getByIds (at most getByIDsBatchSize per call) and
// groups the returned directory objects by class, dispatching on each
// object's @odata.type suffix. IDs whose type cannot be determined are
// logged and skipped. The returned map is ready to pass to
// Enumerator.Backfill.
func (c *Client) ResolveClasses(ctx context.Context, principalIDs []string) (map[string][]string, error) {
	logger := utils.LoggerFromContext(ctx)
	byClass := make(map[string][]string)

	for start := 0; start < len(principalIDs); start += getByIDsBatchSize {
		end := start + getByIDsBatchSize
		if end > len(principalIDs) {
			end = len(principalIDs)
		}
		batch := principalIDs[start:end]

		var resp getByIDsResponse
		url := fmt.Sprintf("%s/v1.0/directoryObjects/getByIds", c.graphBase)
		if err := c.post(ctx, url, getByIDsRequest{IDs: batch}, &resp); err != nil {
			return nil, fmt.Errorf("resolving back-fill batch: %w", err)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("graph error resolving back-fill batch: %v", resp.Error)
		}

		for _, obj := range resp.Value {
			odataType, _ := obj["@odata.type"].(string)
			suffix := odataType
			if idx := strings.LastIndex(odataType, "."); idx >= 0 {
				suffix = odataType[idx+1:]
			}
			class, ok := odataTypeClass(strings.ToLower(suffix))
			if !ok {
				logger.Info("skipping back-fill object of unknown type", "operation", "backfill", "odata_type", odataType)
				continue
			}
			byClass[class] = append(byClass[class], objectID(obj))
		}
	}

	return byClass, nil
}
