package record

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	contractx "github.com/tanpawarit/Chative-Collections-Call/agent/contract"
	gcpoption "google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const defaultWriteTimeout = 10 * time.Second

type FirestoreConfig struct {
	Credentials string        `envconfig:"CREDENTIALS" required:"true"`
	ProjectID   string        `envconfig:"PROJECT_ID" split_words:"true"`
	Collection  string        `envconfig:"COLLECTION" default:"users"`
	Timeout     time.Duration `envconfig:"TIMEOUT" default:"10s"`
}

func (c FirestoreConfig) Validate() error {
	if strings.TrimSpace(c.Credentials) == "" {
		return fmt.Errorf("%w: firebase credentials are required", contractx.ErrValidation)
	}
	if _, err := c.resolveProjectID(); err != nil {
		return err
	}
	return nil
}

func (c FirestoreConfig) resolveProjectID() (string, error) {
	if id := strings.TrimSpace(c.ProjectID); id != "" {
		return id, nil
	}
	var creds struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal([]byte(c.Credentials), &creds); err != nil {
		return "", fmt.Errorf("%w: firebase credentials are not valid json: %v", contractx.ErrValidation, err)
	}
	if strings.TrimSpace(creds.ProjectID) == "" {
		return "", fmt.Errorf("%w: firebase project id is required", contractx.ErrValidation)
	}
	return strings.TrimSpace(creds.ProjectID), nil
}

// FirestoreStore writes commitments onto existing customer documents.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	timeout    time.Duration
}

func NewFirestoreStore(ctx context.Context, cfg FirestoreConfig) (*FirestoreStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	projectID, err := cfg.resolveProjectID()
	if err != nil {
		return nil, err
	}

	client, err := firestore.NewClient(ctx, projectID, gcpoption.WithCredentialsJSON([]byte(cfg.Credentials)))
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}

	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		collection = "users"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultWriteTimeout
	}

	return &FirestoreStore{
		client:     client,
		collection: collection,
		timeout:    timeout,
	}, nil
}

// SaveCommitment merges c into the customer's document in a single atomic update.
// Update fails with NotFound rather than creating a missing customer.
func (s *FirestoreStore) SaveCommitment(ctx context.Context, c contractx.Commitment) error {
	if err := validateCommitment(c); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	_, err := s.client.Collection(s.collection).Doc(c.CustomerID).Update(ctx, commitmentUpdates(c))
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %w: customer=%s", contractx.ErrStoreWrite, contractx.ErrCustomerNotFound, c.CustomerID)
		}
		return fmt.Errorf("%w: firestore update customer=%s: %v", contractx.ErrStoreWrite, c.CustomerID, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

// commitmentUpdates builds the field set for one commitment. Firestore rejects
// server timestamps inside array elements, so the history entry carries the
// capture time and the call id keeps ArrayUnion from collapsing entries.
func commitmentUpdates(c contractx.Commitment) []firestore.Update {
	return []firestore.Update{
		{Path: FieldPromisedRepaymentDate, Value: c.RepaymentDate},
		{Path: FieldPromisedAmount, Value: c.Amount},
		{Path: FieldOverdueAmount, Value: c.OverdueAmount},
		{Path: FieldCommitmentMadeAt, Value: firestore.ServerTimestamp},
		{Path: FieldLastContact, Value: firestore.ServerTimestamp},
		{Path: FieldContactType, Value: string(c.ContactType)},
		{Path: FieldCommitmentStatus, Value: string(c.Status)},
		{Path: FieldPaymentHistory, Value: firestore.ArrayUnion(historyEntry(c))},
	}
}

func validateCommitment(c contractx.Commitment) error {
	var errs []error
	if strings.TrimSpace(c.CustomerID) == "" {
		errs = append(errs, errors.New("customer id is empty"))
	}
	if strings.TrimSpace(c.RepaymentDate) == "" {
		errs = append(errs, errors.New("repayment date is empty"))
	}
	if c.Amount <= 0 {
		errs = append(errs, errors.New("amount must be > 0"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", contractx.ErrValidation, errors.Join(errs...))
	}
	return nil
}
