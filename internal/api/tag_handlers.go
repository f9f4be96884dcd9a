package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cellarclub/cellar-server/internal/domain"
	"github.com/cellarclub/cellar-server/internal/store"
)

func (s *Server) registerTagRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "registerTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags",
		Summary:     "Register tag",
		Description: "Registers an NFC UID, or updates the label if the UID is already known",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRegisterTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "listTags",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags",
		Summary:     "List tags",
		Description: "Returns the caller's tags; admins may filter by owner, pack, or status",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "lookupTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/lookup",
		Summary:     "Lookup tag by UID",
		Description: "Resolves a scanned UID to its viewer-relative claim state",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleLookupTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "getTag",
		Method:      http.MethodGet,
		Path:        "/api/v1/tags/{id}",
		Summary:     "Get tag",
		Description: "Returns a tag by ID",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "claimTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/claim",
		Summary:     "Claim tag",
		Description: "Takes ownership of an unassigned tag, or updates the label on an owned tag",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleClaimTag)

	huma.Register(s.api, huma.Operation{
		OperationID: "assignTag",
		Method:      http.MethodPost,
		Path:        "/api/v1/tags/{id}/assign",
		Summary:     "Assign tag to inventory",
		Description: "Links a claimed tag to an inventory item owned by the caller",
		Tags:        []string{"Tags"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAssignTag)
}

// === DTOs ===

// TagResponse contains tag data in API responses.
type TagResponse struct {
	ID                      string    `json:"id" doc:"Tag ID"`
	NfcUID                  string    `json:"nfc_uid" doc:"Normalized NFC UID"`
	Label                   string    `json:"label" doc:"Display label"`
	Status                  string    `json:"status" doc:"Lifecycle status" enum:"unassigned,claimed,void"`
	RegisteredToUserID      *string   `json:"registered_to_user_id" doc:"Owning user ID, if claimed"`
	RegisteredToInventoryID *string   `json:"registered_to_inventory_id" doc:"Linked inventory item ID"`
	PackID                  *string   `json:"pack_id" doc:"Pack membership, if any"`
	CreatedAt               time.Time `json:"created_at" doc:"Registration time"`
	UpdatedAt               time.Time `json:"updated_at" doc:"Last update time"`
}

func toTagResponse(t *domain.Tag) TagResponse {
	return TagResponse{
		ID:                      t.ID,
		NfcUID:                  t.NfcUID,
		Label:                   t.Label,
		Status:                  string(t.Status),
		RegisteredToUserID:      t.RegisteredToUserID,
		RegisteredToInventoryID: t.RegisteredToInventoryID,
		PackID:                  t.PackID,
		CreatedAt:               t.CreatedAt,
		UpdatedAt:               t.UpdatedAt,
	}
}

// RegisterTagRequest is the request body for registering a tag.
type RegisterTagRequest struct {
	NfcUID string `json:"nfc_uid" validate:"required" doc:"Raw NFC UID; separators and case are normalized"`
	Label  string `json:"label,omitempty" validate:"omitempty,max=100" doc:"Display label"`
}

// RegisterTagInput wraps the register tag request for Huma.
type RegisterTagInput struct {
	Authorization string `header:"Authorization"`
	Body          RegisterTagRequest
}

// RegisterTagResponse contains the registered tag and whether it was created.
type RegisterTagResponse struct {
	Tag     TagResponse `json:"tag" doc:"The registered tag"`
	Created bool        `json:"created" doc:"True when a new tag was created"`
}

// RegisterTagOutput wraps the register tag response for Huma.
type RegisterTagOutput struct {
	Body RegisterTagResponse
}

// ListTagsInput contains parameters for listing tags.
type ListTagsInput struct {
	Authorization string `header:"Authorization"`
	OwnerID       string `query:"owner_id" doc:"Filter by owner (admin only)"`
	PackID        string `query:"pack_id" doc:"Filter by pack (admin only)"`
	Status        string `query:"status" doc:"Filter by status (admin only)"`
	Limit         int    `query:"limit" doc:"Max results"`
}

// ListTagsResponse contains a list of tags.
type ListTagsResponse struct {
	Tags []TagResponse `json:"tags" doc:"List of tags"`
}

// ListTagsOutput wraps the list tags response for Huma.
type ListTagsOutput struct {
	Body ListTagsResponse
}

// LookupTagInput contains parameters for UID lookup.
type LookupTagInput struct {
	Authorization string `header:"Authorization"`
	UID           string `query:"uid" required:"true" doc:"Raw NFC UID to resolve"`
}

// InventoryResponse contains the linked inventory item in lookup responses.
type InventoryResponse struct {
	ID         string `json:"id" doc:"Inventory item ID"`
	BottleName string `json:"bottle_name" doc:"Bottle name"`
	Vintage    int    `json:"vintage,omitempty" doc:"Vintage year"`
}

// LookupTagResponse contains the viewer-relative resolution of a UID.
type LookupTagResponse struct {
	State     string             `json:"state" doc:"Viewer-relative claim state" enum:"unassigned,mine_unlinked,mine_linked,owned_by_other"`
	Tag       TagResponse        `json:"tag" doc:"The resolved tag"`
	Inventory *InventoryResponse `json:"inventory,omitempty" doc:"Linked inventory item, when state is mine_linked"`
}

// LookupTagOutput wraps the lookup response for Huma.
type LookupTagOutput struct {
	Body LookupTagResponse
}

// GetTagInput contains parameters for getting a tag.
type GetTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
}

// TagOutput wraps the tag response for Huma.
type TagOutput struct {
	Body TagResponse
}

// ClaimTagRequest is the request body for claiming a tag.
type ClaimTagRequest struct {
	Label string `json:"label,omitempty" validate:"omitempty,max=100" doc:"Display label"`
}

// ClaimTagInput wraps the claim tag request for Huma.
type ClaimTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Body          ClaimTagRequest
}

// AssignTagRequest is the request body for linking a tag to inventory.
type AssignTagRequest struct {
	InventoryID string `json:"inventory_id" validate:"required" doc:"Inventory item ID owned by the caller"`
}

// AssignTagInput wraps the assign tag request for Huma.
type AssignTagInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Tag ID"`
	Body          AssignTagRequest
}

// === Handlers ===

func (s *Server) handleRegisterTag(ctx context.Context, input *RegisterTagInput) (*RegisterTagOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	tag, created, err := s.services.Registry.Register(ctx, input.Body.NfcUID, input.Body.Label)
	if err != nil {
		return nil, err
	}

	return &RegisterTagOutput{Body: RegisterTagResponse{
		Tag:     toTagResponse(tag),
		Created: created,
	}}, nil
}

func (s *Server) handleListTags(ctx context.Context, input *ListTagsInput) (*ListTagsOutput, error) {
	claims, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	filter := store.TagFilter{
		OwnerID: claims.UserID,
		Limit:   input.Limit,
	}

	// Admins may scope the listing beyond their own tags.
	if claims.IsAdmin {
		filter.OwnerID = input.OwnerID
		filter.PackID = input.PackID
		filter.Status = domain.TagStatus(input.Status)
	}

	tags, err := s.services.Registry.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	resp := make([]TagResponse, len(tags))
	for i, t := range tags {
		resp[i] = toTagResponse(t)
	}

	return &ListTagsOutput{Body: ListTagsResponse{Tags: resp}}, nil
}

func (s *Server) handleLookupTag(ctx context.Context, input *LookupTagInput) (*LookupTagOutput, error) {
	claims, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}

	result, err := s.services.Claim.Lookup(ctx, input.UID, claims.UserID)
	if err != nil {
		return nil, err
	}

	resp := LookupTagResponse{
		State: string(result.State),
		Tag:   toTagResponse(result.Tag),
	}
	if result.Inventory != nil {
		resp.Inventory = &InventoryResponse{
			ID:         result.Inventory.ID,
			BottleName: result.Inventory.BottleName,
			Vintage:    result.Inventory.Vintage,
		}
	}

	return &LookupTagOutput{Body: resp}, nil
}

func (s *Server) handleGetTag(ctx context.Context, input *GetTagInput) (*TagOutput, error) {
	if _, err := s.authenticateRequest(ctx, input.Authorization); err != nil {
		return nil, err
	}

	tag, err := s.services.Registry.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleClaimTag(ctx context.Context, input *ClaimTagInput) (*TagOutput, error) {
	claims, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	tag, err := s.services.Claim.Claim(ctx, input.ID, claims.UserID, input.Body.Label)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: toTagResponse(tag)}, nil
}

func (s *Server) handleAssignTag(ctx context.Context, input *AssignTagInput) (*TagOutput, error) {
	claims, err := s.authenticateRequest(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	tag, err := s.services.Claim.Assign(ctx, input.ID, claims.UserID, input.Body.InventoryID)
	if err != nil {
		return nil, err
	}

	return &TagOutput{Body: toTagResponse(tag)}, nil
}
