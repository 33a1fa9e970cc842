package shopify

import "context"

// The badge lives at product.metafields.custom.badge.

const badgeUpdateMutation = `
mutation productUpdate($input: ProductInput!) {
  productUpdate(input: $input) {
    product {
      id
      metafield(namespace: "custom", key: "badge") {
        value
      }
    }
    userErrors {
      field
      message
    }
  }
}`

const badgeDeleteMutation = `
mutation MetafieldsDelete($metafields: [MetafieldIdentifierInput!]!) {
  metafieldsDelete(metafields: $metafields) {
    deletedMetafields {
      key
      namespace
      ownerId
    }
    userErrors {
      field
      message
    }
  }
}`

// UpdateBadge sets the badge metafield on each product.
func (c *Client) UpdateBadge(ctx context.Context, productIDs []string, badge string, dryRun bool) Result {
	c.logger.Info("setting badge", "badge", badge, "products", len(productIDs), "dry_run", dryRun)

	r := c.perProduct(ctx, "productUpdate", productIDs, dryRun, func(id string) map[string]any {
		return map[string]any{
			"input": map[string]any{
				"id": id,
				"metafields": []map[string]any{{
					"namespace": "custom",
					"key":       "badge",
					"value":     badge,
					"type":      "single_line_text_field",
				}},
			},
		}
	}, badgeUpdateMutation)

	c.logSummary("update_badge", r, dryRun)
	return r
}

// ClearBadge deletes the badge metafield from each product.
func (c *Client) ClearBadge(ctx context.Context, productIDs []string, dryRun bool) Result {
	c.logger.Info("clearing badge", "products", len(productIDs), "dry_run", dryRun)

	r := c.perProduct(ctx, "metafieldsDelete", productIDs, dryRun, func(id string) map[string]any {
		return map[string]any{
			"metafields": []map[string]any{{
				"ownerId":   id,
				"namespace": "custom",
				"key":       "badge",
			}},
		}
	}, badgeDeleteMutation)

	c.logSummary("clear_badge", r, dryRun)
	return r
}
