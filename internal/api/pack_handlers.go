package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/cellarclub/cellar-server/internal/domain"
)

func (s *Server) registerPackRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "createPack",
		Method:      http.MethodPost,
		Path:        "/api/v1/packs",
		Summary:     "Create pack",
		Description: "Creates an empty active tag pack",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePack)

	huma.Register(s.api, huma.Operation{
		OperationID: "listPacks",
		Method:      http.MethodGet,
		Path:        "/api/v1/packs",
		Summary:     "List packs",
		Description: "Returns packs, newest first",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPacks)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPack",
		Method:      http.MethodGet,
		Path:        "/api/v1/packs/{id}",
		Summary:     "Get pack",
		Description: "Returns a pack with its member tags",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPack)

	huma.Register(s.api, huma.Operation{
		OperationID: "addPackTags",
		Method:      http.MethodPost,
		Path:        "/api/v1/packs/{id}/tags",
		Summary:     "Add tags to pack",
		Description: "Attaches previously-registered tags to an active pack; rejections are reported per UID",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAddPackTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "removePackTags",
		Method:      http.MethodDelete,
		Path:        "/api/v1/packs/{id}/tags",
		Summary:     "Remove tags from pack",
		Description: "Detaches tags from an active pack",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleRemovePackTags)

	huma.Register(s.api, huma.Operation{
		OperationID: "assignPack",
		Method:      http.MethodPost,
		Path:        "/api/v1/packs/{id}/assign",
		Summary:     "Assign pack to user",
		Description: "Atomically claims all unowned member tags for the user resolved by email",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleAssignPack)

	huma.Register(s.api, huma.Operation{
		OperationID: "voidPack",
		Method:      http.MethodPost,
		Path:        "/api/v1/packs/{id}/void",
		Summary:     "Void pack",
		Description: "Retires an active pack; member tags' claim states are untouched",
		Tags:        []string{"Packs"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleVoidPack)
}

// === DTOs ===

// PackResponse contains pack data in API responses.
type PackResponse struct {
	ID              string     `json:"id" doc:"Pack ID"`
	PackCode        string     `json:"pack_code" doc:"Unique human-readable pack code"`
	Name            string     `json:"name" doc:"Display name"`
	TagCount        int        `json:"tag_count" doc:"Expected capacity"`
	ActualTagCount  int        `json:"actual_tag_count" doc:"Current member tag count"`
	Status          string     `json:"status" doc:"Lifecycle status" enum:"active,claimed,void"`
	RetailPrice     *int64     `json:"retail_price,omitempty" doc:"Retail price in cents"`
	ClaimedByUserID *string    `json:"claimed_by_user_id" doc:"Claiming user ID, when claimed"`
	ClaimedByEmail  string     `json:"claimed_by_email,omitempty" doc:"Claiming user email, when claimed"`
	ClaimedAt       *time.Time `json:"claimed_at" doc:"Claim time"`
	VoidReason      string     `json:"void_reason,omitempty" doc:"Reason the pack was voided"`
	VoidedAt        *time.Time `json:"voided_at" doc:"Void time"`
	CreatedBy       string     `json:"created_by" doc:"Creating user ID"`
	CreatedAt       time.Time  `json:"created_at" doc:"Creation time"`
}

func toPackResponse(p *domain.TagPack) PackResponse {
	return PackResponse{
		ID:              p.ID,
		PackCode:        p.PackCode,
		Name:            p.Name,
		TagCount:        p.TagCount,
		ActualTagCount:  p.ActualTagCount,
		Status:          string(p.Status),
		RetailPrice:     p.RetailPriceCents,
		ClaimedByUserID: p.ClaimedByUserID,
		ClaimedAt:       p.ClaimedAt,
		VoidReason:      p.VoidReason,
		VoidedAt:        p.VoidedAt,
		CreatedBy:       p.CreatedBy,
		CreatedAt:       p.CreatedAt,
	}
}

// CreatePackRequest is the request body for creating a pack.
type CreatePackRequest struct {
	PackCode    string `json:"pack_code" validate:"required,max=50" doc:"Unique human-readable pack code"`
	Name        string `json:"name,omitempty" validate:"omitempty,max=100" doc:"Display name"`
	TagCount    int    `json:"tag_count" validate:"gte=0" doc:"Expected capacity"`
	RetailPrice *int64 `json:"retail_price,omitempty" validate:"omitempty,gte=0" doc:"Retail price in cents"`
}

// CreatePackInput wraps the create pack request for Huma.
type CreatePackInput struct {
	Authorization string `header:"Authorization"`
	Body          CreatePackRequest
}

// PackOutput wraps the pack response for Huma.
type PackOutput struct {
	Body PackResponse
}

// ListPacksInput contains parameters for listing packs.
type ListPacksInput struct {
	Authorization string `header:"Authorization"`
	Limit         int    `query:"limit" doc:"Max results"`
}

// ListPacksResponse contains a list of packs.
type ListPacksResponse struct {
	Packs []PackResponse `json:"packs" doc:"List of packs"`
}

// ListPacksOutput wraps the list packs response for Huma.
type ListPacksOutput struct {
	Body ListPacksResponse
}

// GetPackInput contains parameters for getting a pack.
type GetPackInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Pack ID"`
}

// PackDetailResponse contains a pack with its member tags.
type PackDetailResponse struct {
	Pack PackResponse  `json:"pack" doc:"The pack"`
	Tags []TagResponse `json:"tags" doc:"Member tags"`
}

// PackDetailOutput wraps the pack detail response for Huma.
type PackDetailOutput struct {
	Body PackDetailResponse
}

// AddPackTagsRequest is the request body for adding tags to a pack.
type AddPackTagsRequest struct {
	NfcUIDs []string `json:"nfc_uids" validate:"required,min=1,max=500" doc:"UIDs of previously-registered tags"`
}

// AddPackTagsInput wraps the add pack tags request for Huma.
type AddPackTagsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Pack ID"`
	Body          AddPackTagsRequest
}

// SkippedUIDResponse pairs a rejected UID with its reason.
type SkippedUIDResponse struct {
	NfcUID string `json:"nfc_uid" doc:"The rejected UID"`
	Reason string `json:"reason" doc:"Machine-readable rejection reason" enum:"not_found,already_claimed,in_other_pack,void"`
}

// AddPackTagsResponse contains the partial-success breakdown.
type AddPackTagsResponse struct {
	Added   int                  `json:"added" doc:"Tags attached"`
	Skipped int                  `json:"skipped" doc:"UIDs rejected"`
	Reasons []SkippedUIDResponse `json:"reasons" doc:"Per-UID rejection reasons"`
}

// AddPackTagsOutput wraps the add pack tags response for Huma.
type AddPackTagsOutput struct {
	Body AddPackTagsResponse
}

// RemovePackTagsRequest is the request body for removing tags from a pack.
type RemovePackTagsRequest struct {
	TagIDs []string `json:"tag_ids" validate:"required,min=1,max=500" doc:"Tag IDs to detach"`
}

// RemovePackTagsInput wraps the remove pack tags request for Huma.
type RemovePackTagsInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Pack ID"`
	Body          RemovePackTagsRequest
}

// RemovePackTagsResponse reports how many tags were detached.
type RemovePackTagsResponse struct {
	Removed int `json:"removed" doc:"Tags detached"`
}

// RemovePackTagsOutput wraps the remove pack tags response for Huma.
type RemovePackTagsOutput struct {
	Body RemovePackTagsResponse
}

// AssignPackRequest is the request body for assigning a pack.
type AssignPackRequest struct {
	UserEmail string `json:"user_email" validate:"required,email" doc:"Email of the receiving user"`
}

// AssignPackInput wraps the assign pack request for Huma.
type AssignPackInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Pack ID"`
	Body          AssignPackRequest
}

// AssignPackResponse reports the outcome of a pack assignment.
type AssignPackResponse struct {
	TagsClaimed int `json:"tags_claimed" doc:"Member tags claimed for the user"`
}

// AssignPackOutput wraps the assign pack response for Huma.
type AssignPackOutput struct {
	Body AssignPackResponse
}

// VoidPackRequest is the request body for voiding a pack.
type VoidPackRequest struct {
	Reason string `json:"reason" validate:"required,max=200" doc:"Why the pack is being retired"`
}

// VoidPackInput wraps the void pack request for Huma.
type VoidPackInput struct {
	Authorization string `header:"Authorization"`
	ID            string `path:"id" doc:"Pack ID"`
	Body          VoidPackRequest
}

// === Handlers ===

func (s *Server) handleCreatePack(ctx context.Context, input *CreatePackInput) (*PackOutput, error) {
	claims, err := s.authenticateAndRequireAdmin(ctx, input.Authorization)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	pack, err := s.services.Pack.Create(ctx, input.Body.PackCode, input.Body.Name, input.Body.TagCount, input.Body.RetailPrice, claims.UserID)
	if err != nil {
		return nil, err
	}

	return &PackOutput{Body: toPackResponse(pack)}, nil
}

func (s *Server) handleListPacks(ctx context.Context, input *ListPacksInput) (*ListPacksOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	packs, err := s.services.Pack.List(ctx, input.Limit)
	if err != nil {
		return nil, err
	}

	resp := make([]PackResponse, len(packs))
	for i, p := range packs {
		resp[i] = toPackResponse(p)
	}

	return &ListPacksOutput{Body: ListPacksResponse{Packs: resp}}, nil
}

func (s *Server) handleGetPack(ctx context.Context, input *GetPackInput) (*PackDetailOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}

	detail, err := s.services.Pack.Get(ctx, input.ID)
	if err != nil {
		return nil, err
	}

	pack := toPackResponse(detail.Pack)
	pack.ClaimedByEmail = detail.ClaimedByEmail

	tags := make([]TagResponse, len(detail.Tags))
	for i, t := range detail.Tags {
		tags[i] = toTagResponse(t)
	}

	return &PackDetailOutput{Body: PackDetailResponse{Pack: pack, Tags: tags}}, nil
}

func (s *Server) handleAddPackTags(ctx context.Context, input *AddPackTagsInput) (*AddPackTagsOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Pack.AddTags(ctx, input.ID, input.Body.NfcUIDs)
	if err != nil {
		return nil, err
	}

	reasons := make([]SkippedUIDResponse, len(result.Reasons))
	for i, r := range result.Reasons {
		reasons[i] = SkippedUIDResponse{NfcUID: r.NfcUID, Reason: string(r.Reason)}
	}

	return &AddPackTagsOutput{Body: AddPackTagsResponse{
		Added:   result.Added,
		Skipped: result.Skipped,
		Reasons: reasons,
	}}, nil
}

func (s *Server) handleRemovePackTags(ctx context.Context, input *RemovePackTagsInput) (*RemovePackTagsOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	removed, err := s.services.Pack.RemoveTags(ctx, input.ID, input.Body.TagIDs)
	if err != nil {
		return nil, err
	}

	return &RemovePackTagsOutput{Body: RemovePackTagsResponse{Removed: removed}}, nil
}

func (s *Server) handleAssignPack(ctx context.Context, input *AssignPackInput) (*AssignPackOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	result, err := s.services.Pack.AssignToUser(ctx, input.ID, input.Body.UserEmail)
	if err != nil {
		return nil, err
	}

	return &AssignPackOutput{Body: AssignPackResponse{TagsClaimed: result.TagsClaimed}}, nil
}

func (s *Server) handleVoidPack(ctx context.Context, input *VoidPackInput) (*PackOutput, error) {
	if _, err := s.authenticateAndRequireAdmin(ctx, input.Authorization); err != nil {
		return nil, err
	}
	if err := s.validator.Validate(input.Body); err != nil {
		return nil, err
	}

	pack, err := s.services.Pack.Void(ctx, input.ID, input.Body.Reason)
	if err != nil {
		return nil, err
	}

	return &PackOutput{Body: toPackResponse(pack)}, nil
}
