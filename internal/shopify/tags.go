package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const tagsAddMutation = `
mutation tagsAdd($id: ID!, $tags: [String!]!) {
  tagsAdd(id: $id, tags: $tags) {
    node {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

const tagsRemoveMutation = `
mutation tagsRemove($id: ID!, $tags: [String!]!) {
  tagsRemove(id: $id, tags: $tags) {
    node {
      id
    }
    userErrors {
      field
      message
    }
  }
}`

// Result collects per-product outcomes of a bulk mutation. A failed
// product never aborts the rest of the batch.
type Result struct {
	Success []string
	Failed  []string
	Errors  []ProductError
}

// ProductError records why one product's mutation failed.
type ProductError struct {
	ProductID string
	Message   string
}

func (r *Result) fail(id, msg string) {
	r.Failed = append(r.Failed, id)
	r.Errors = append(r.Errors, ProductError{ProductID: id, Message: msg})
}

// NormalizeGID ensures an ID is a full product GID. Bare numeric IDs
// from the warehouse get the gid://shopify/Product/ prefix.
func NormalizeGID(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "gid://") {
		return id
	}
	return "gid://shopify/Product/" + id
}

// AddTags adds tags to each product. Dry runs log the plan and report
// every product as a success.
func (c *Client) AddTags(ctx context.Context, productIDs, tags []string, dryRun bool) Result {
	c.logger.Info("adding tags", "tags", tags, "products", len(productIDs), "dry_run", dryRun)

	r := c.perProduct(ctx, "tagsAdd", productIDs, dryRun, func(id string) map[string]any {
		return map[string]any{"id": id, "tags": tags}
	}, tagsAddMutation)

	c.logSummary("add_tags", r, dryRun)
	return r
}

// RemoveTags removes tags from each product.
func (c *Client) RemoveTags(ctx context.Context, productIDs, tags []string, dryRun bool) Result {
	c.logger.Info("removing tags", "tags", tags, "products", len(productIDs), "dry_run", dryRun)

	r := c.perProduct(ctx, "tagsRemove", productIDs, dryRun, func(id string) map[string]any {
		return map[string]any{"id": id, "tags": tags}
	}, tagsRemoveMutation)

	c.logSummary("remove_tags", r, dryRun)
	return r
}

// perProduct runs one mutation per product, collecting outcomes. op is
// the mutation field name, used to locate userErrors in the response.
func (c *Client) perProduct(ctx context.Context, op string, productIDs []string, dryRun bool, vars func(id string) map[string]any, mutation string) Result {
	var r Result
	for _, pid := range productIDs {
		id := NormalizeGID(pid)

		data, err := c.Mutate(ctx, mutation, vars(id), dryRun)
		if err != nil {
			r.fail(id, err.Error())
			c.logger.Error("mutation failed", "op", op, "product", id, "error", err)
			continue
		}
		if dryRun {
			r.Success = append(r.Success, id)
			continue
		}

		if userErrs := extractUserErrors(data, op); len(userErrs) > 0 {
			r.fail(id, joinUserErrors(userErrs))
			c.logger.Error("mutation rejected", "op", op, "product", id, "errors", joinUserErrors(userErrs))
			continue
		}
		r.Success = append(r.Success, id)
	}
	return r
}

type userError struct {
	Field   json.RawMessage `json:"field"`
	Message string          `json:"message"`
}

// extractUserErrors pulls the userErrors array out of data.<op>.
func extractUserErrors(data json.RawMessage, op string) []userError {
	var outer map[string]json.RawMessage
	if err := json.Unmarshal(data, &outer); err != nil {
		return nil
	}
	var inner struct {
		UserErrors []userError `json:"userErrors"`
	}
	if err := json.Unmarshal(outer[op], &inner); err != nil {
		return nil
	}
	return inner.UserErrors
}

func joinUserErrors(errs []userError) string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Message
	}
	return strings.Join(msgs, "; ")
}

func (c *Client) logSummary(op string, r Result, dryRun bool) {
	msg := fmt.Sprintf("%s complete", op)
	if dryRun {
		msg = "[dry run] " + msg
	}
	c.logger.Info(msg, "succeeded", len(r.Success), "failed", len(r.Failed))
}
