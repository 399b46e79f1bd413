package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"gitlab.com/sgtreasury/tally/internal/gemini"
	"gitlab.com/sgtreasury/tally/internal/models"
	"gitlab.com/sgtreasury/tally/internal/validation"
)

func get[T any](ctx context.Context, c *Client, path string, query url.Values) (T, error) {
	var out T
	_, err := c.call(ctx, http.MethodGet, path, query, nil, &out)
	return out, err
}

func write[T any](ctx context.Context, c *Client, method, path string, query url.Values, in any) (*T, error) {
	out := new(T)
	if _, err := c.call(ctx, method, path, query, in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) remove(ctx context.Context, path, id string) error {
	_, err := c.call(ctx, http.MethodDelete, path, byID(id), nil, nil)
	return err
}

// Users

func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	return get[[]models.User](ctx, c, "/api/users", nil)
}

func (c *Client) GetUser(ctx context.Context, id string) (*models.User, error) {
	return get[*models.User](ctx, c, "/api/users", byID(id))
}

func (c *Client) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return get[*models.User](ctx, c, "/api/users", by("email", email))
}

// Me returns the signed-in user.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	return get[*models.User](ctx, c, "/api/users/me", nil)
}

// SyncUser upserts the signed-in user's profile.
func (c *Client) SyncUser(ctx context.Context, in *validation.UserInput) (*models.User, error) {
	return write[models.User](ctx, c, http.MethodPost, "/api/users", nil, in)
}

func (c *Client) UpdateUser(ctx context.Context, id string, patch *validation.UserPatch) (*models.User, error) {
	return write[models.User](ctx, c, http.MethodPut, "/api/users", byID(id), patch)
}

// Clubs

func (c *Client) ListClubs(ctx context.Context) ([]models.Club, error) {
	return get[[]models.Club](ctx, c, "/api/clubs", nil)
}

func (c *Client) GetClub(ctx context.Context, id string) (*models.Club, error) {
	return get[*models.Club](ctx, c, "/api/clubs", byID(id))
}

// SearchClubs matches a case-insensitive substring of the club name.
func (c *Client) SearchClubs(ctx context.Context, name string) ([]models.Club, error) {
	return get[[]models.Club](ctx, c, "/api/clubs", by("name", name))
}

func (c *Client) CreateClub(ctx context.Context, in *validation.ClubInput) (*models.Club, error) {
	return write[models.Club](ctx, c, http.MethodPost, "/api/clubs", nil, in)
}

func (c *Client) UpdateClub(ctx context.Context, id string, patch *validation.ClubPatch) (*models.Club, error) {
	return write[models.Club](ctx, c, http.MethodPut, "/api/clubs", byID(id), patch)
}

func (c *Client) DeleteClub(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/clubs", id)
}

// Memberships

func (c *Client) ListMemberships(ctx context.Context) ([]models.ClubMembership, error) {
	return get[[]models.ClubMembership](ctx, c, "/api/clubMemberships", nil)
}

func (c *Client) GetMembership(ctx context.Context, id string) (*models.ClubMembership, error) {
	return get[*models.ClubMembership](ctx, c, "/api/clubMemberships", byID(id))
}

func (c *Client) ListMembershipsByUser(ctx context.Context, userID string) ([]models.ClubMembership, error) {
	return get[[]models.ClubMembership](ctx, c, "/api/clubMemberships", by("userId", userID))
}

func (c *Client) ListMembershipsByClub(ctx context.Context, clubID string) ([]models.ClubMembership, error) {
	return get[[]models.ClubMembership](ctx, c, "/api/clubMemberships", by("clubId", clubID))
}

// TreasurerView returns the club userID treasures with its memberships. A
// user who treasures no club gets a 403 *APIError.
func (c *Client) TreasurerView(ctx context.Context, userID string) (*models.TreasurerView, error) {
	return get[*models.TreasurerView](ctx, c, "/api/clubMemberships", by("treasurerUserId", userID))
}

func (c *Client) CreateMembership(ctx context.Context, in *validation.MembershipInput) (*models.ClubMembership, error) {
	return write[models.ClubMembership](ctx, c, http.MethodPost, "/api/clubMemberships", nil, in)
}

func (c *Client) UpdateMembership(ctx context.Context, id string, patch *validation.MembershipPatch) (*models.ClubMembership, error) {
	return write[models.ClubMembership](ctx, c, http.MethodPut, "/api/clubMemberships", byID(id), patch)
}

func (c *Client) DeleteMembership(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/clubMemberships", id)
}

// Invites

func (c *Client) ListInvites(ctx context.Context) ([]models.ClubInvite, error) {
	return get[[]models.ClubInvite](ctx, c, "/api/clubInvites", nil)
}

func (c *Client) GetInvite(ctx context.Context, id string) (*models.ClubInvite, error) {
	return get[*models.ClubInvite](ctx, c, "/api/clubInvites", byID(id))
}

func (c *Client) ListInvitesByEmail(ctx context.Context, email string) ([]models.ClubInvite, error) {
	return get[[]models.ClubInvite](ctx, c, "/api/clubInvites", by("userEmail", email))
}

func (c *Client) ListInvitesByClub(ctx context.Context, clubID string) ([]models.ClubInvite, error) {
	return get[[]models.ClubInvite](ctx, c, "/api/clubInvites", by("clubId", clubID))
}

// CreateInvite stores and emails an invite. When only the email failed the
// stored invite is returned together with an error wrapping ErrEmailNotSent.
func (c *Client) CreateInvite(ctx context.Context, in *validation.InviteInput) (*models.ClubInvite, error) {
	var invite models.ClubInvite
	env, err := c.call(ctx, http.MethodPost, "/api/clubInvites", nil, in, &invite)
	if err != nil {
		return nil, err
	}
	if env.Message != "" {
		return &invite, fmt.Errorf("%w: %s", ErrEmailNotSent, env.Message)
	}
	return &invite, nil
}

func (c *Client) UpdateInvite(ctx context.Context, id string, patch *validation.InvitePatch) (*models.ClubInvite, error) {
	return write[models.ClubInvite](ctx, c, http.MethodPut, "/api/clubInvites", byID(id), patch)
}

func (c *Client) DeleteInvite(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/clubInvites", id)
}

// PendingInvites lists the signed-in user's open invites, one per club.
func (c *Client) PendingInvites(ctx context.Context) ([]models.ClubInvite, error) {
	return get[[]models.ClubInvite](ctx, c, "/api/clubInvites/pending", nil)
}

// AcceptInvite joins clubID using the signed-in user's invite.
func (c *Client) AcceptInvite(ctx context.Context, clubID string) (*models.ClubMembership, error) {
	return write[models.ClubMembership](ctx, c, http.MethodPost, "/api/clubInvites/accept", nil, &validation.InviteDecision{ClubID: clubID})
}

// DeclineInvite drops the signed-in user's invites to clubID.
func (c *Client) DeclineInvite(ctx context.Context, clubID string) error {
	_, err := c.call(ctx, http.MethodPost, "/api/clubInvites/decline", nil, &validation.InviteDecision{ClubID: clubID}, nil)
	return err
}

// Budget

func (c *Client) ListSections(ctx context.Context) ([]models.BudgetSection, error) {
	return get[[]models.BudgetSection](ctx, c, "/api/budgetSections", nil)
}

func (c *Client) GetSection(ctx context.Context, id string) (*models.BudgetSection, error) {
	return get[*models.BudgetSection](ctx, c, "/api/budgetSections", byID(id))
}

func (c *Client) ListSectionsByClub(ctx context.Context, clubID string) ([]models.BudgetSection, error) {
	return get[[]models.BudgetSection](ctx, c, "/api/budgetSections", by("clubId", clubID))
}

func (c *Client) CreateSection(ctx context.Context, in *validation.BudgetSectionInput) (*models.BudgetSection, error) {
	return write[models.BudgetSection](ctx, c, http.MethodPost, "/api/budgetSections", nil, in)
}

func (c *Client) UpdateSection(ctx context.Context, id string, patch *validation.BudgetSectionPatch) (*models.BudgetSection, error) {
	return write[models.BudgetSection](ctx, c, http.MethodPut, "/api/budgetSections", byID(id), patch)
}

func (c *Client) DeleteSection(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/budgetSections", id)
}

// BudgetChart returns the club's allocation chart as PNG bytes.
func (c *Client) BudgetChart(ctx context.Context, clubID string) ([]byte, error) {
	d, err := c.download(ctx, "/api/budgetSections/chart", by("clubId", clubID))
	if err != nil {
		return nil, err
	}
	return d.Data, nil
}

func (c *Client) ListItems(ctx context.Context) ([]models.BudgetItem, error) {
	return get[[]models.BudgetItem](ctx, c, "/api/budgetItems", nil)
}

func (c *Client) GetItem(ctx context.Context, id string) (*models.BudgetItem, error) {
	return get[*models.BudgetItem](ctx, c, "/api/budgetItems", byID(id))
}

func (c *Client) ListItemsBySection(ctx context.Context, sectionID string) ([]models.BudgetItem, error) {
	return get[[]models.BudgetItem](ctx, c, "/api/budgetItems", by("sectionId", sectionID))
}

func (c *Client) CreateItem(ctx context.Context, in *validation.BudgetItemInput) (*models.BudgetItem, error) {
	return write[models.BudgetItem](ctx, c, http.MethodPost, "/api/budgetItems", nil, in)
}

func (c *Client) UpdateItem(ctx context.Context, id string, patch *validation.BudgetItemPatch) (*models.BudgetItem, error) {
	return write[models.BudgetItem](ctx, c, http.MethodPut, "/api/budgetItems", byID(id), patch)
}

func (c *Client) DeleteItem(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/budgetItems", id)
}

// Reimbursements

func (c *Client) ListReimbursements(ctx context.Context) ([]models.Reimbursement, error) {
	return get[[]models.Reimbursement](ctx, c, "/api/reimbursements", nil)
}

func (c *Client) GetReimbursement(ctx context.Context, id string) (*models.Reimbursement, error) {
	return get[*models.Reimbursement](ctx, c, "/api/reimbursements", byID(id))
}

func (c *Client) ListReimbursementsByPayee(ctx context.Context, payeeUserID string) ([]models.Reimbursement, error) {
	return get[[]models.Reimbursement](ctx, c, "/api/reimbursements", by("payeeUserId", payeeUserID))
}

func (c *Client) ListReimbursementsByClub(ctx context.Context, clubID string) ([]models.Reimbursement, error) {
	return get[[]models.Reimbursement](ctx, c, "/api/reimbursements", by("clubId", clubID))
}

// CreateReimbursement submits a reimbursement. A non-nil receipt is sent as
// a multipart upload in the same request.
func (c *Client) CreateReimbursement(ctx context.Context, in *validation.ReimbursementInput, receipt *File) (*models.Reimbursement, error) {
	if receipt == nil {
		return write[models.Reimbursement](ctx, c, http.MethodPost, "/api/reimbursements", nil, in)
	}

	fields := map[string]string{
		"clubId":      in.ClubID,
		"payeeUserId": in.PayeeUserID,
		"amountCents": strconv.FormatInt(in.AmountCents, 10),
		"description": in.Description,
	}
	if in.BudgetItemID != nil {
		fields["budgetItemId"] = *in.BudgetItemID
	}
	var rb models.Reimbursement
	if err := c.callMultipart(ctx, "/api/reimbursements", fields, receipt, &rb); err != nil {
		return nil, err
	}
	return &rb, nil
}

func (c *Client) UpdateReimbursement(ctx context.Context, id string, patch *validation.ReimbursementPatch) (*models.Reimbursement, error) {
	return write[models.Reimbursement](ctx, c, http.MethodPut, "/api/reimbursements", byID(id), patch)
}

func (c *Client) DeleteReimbursement(ctx context.Context, id string) error {
	return c.remove(ctx, "/api/reimbursements", id)
}

// SignedURL exchanges a storage:// reference for a short-lived URL.
func (c *Client) SignedURL(ctx context.Context, ref string) (string, error) {
	out, err := get[map[string]string](ctx, c, "/api/reimbursements/signed-url", by("url", ref))
	if err != nil {
		return "", err
	}
	return out["url"], nil
}

// GenerateForm renders and stores the reimbursement's PDF form.
func (c *Client) GenerateForm(ctx context.Context, id string) (*models.Reimbursement, error) {
	return write[models.Reimbursement](ctx, c, http.MethodPost, "/api/reimbursements/form", byID(id), nil)
}

// ExportReimbursements downloads the club's reimbursements as CSV.
func (c *Client) ExportReimbursements(ctx context.Context, clubID string) (*Download, error) {
	return c.download(ctx, "/api/reimbursements/export", by("clubId", clubID))
}

// Upload stores a file of the given kind and returns its storage reference.
func (c *Client) Upload(ctx context.Context, kind string, file *File) (string, error) {
	var out map[string]string
	if err := c.callMultipart(ctx, "/api/uploads", map[string]string{"type": kind}, file, &out); err != nil {
		return "", err
	}
	return out["ref"], nil
}

// ScanReceipt returns suggested reimbursement fields read from a receipt.
func (c *Client) ScanReceipt(ctx context.Context, file *File) (*gemini.Receipt, error) {
	var out gemini.Receipt
	if err := c.callMultipart(ctx, "/api/receipts/scan", nil, file, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
