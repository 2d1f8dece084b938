package services

import (
	"context"
	"fmt"
	"time"

	"convo_server/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// UserStore is the durable, authoritative store for identity records. The
// mutating transitions on friend state are conditional at the store layer so
// concurrent requests cannot double-apply them; a lost guard surfaces as
// ErrConditionFailed and a missing record as ErrItemNotFound.
type UserStore interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUserName(ctx context.Context, userName string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetRefreshToken(ctx context.Context, id, token string) error
	RevokeRefreshToken(ctx context.Context, id string) error

	// AddIncomingRequest adds sender to recipient's incoming set, guarded by
	// "no pending request and not already friends".
	AddIncomingRequest(ctx context.Context, recipientID, senderID string) error
	AddSentRequest(ctx context.Context, senderID, recipientID string) error
	// AcceptIncomingRequest moves sender from recipient's incoming set to the
	// friend set, guarded by "request pending and not already friends".
	AcceptIncomingRequest(ctx context.Context, recipientID, senderID string) error
	// ConfirmAcceptedRequest mirrors the accept onto the sender's record.
	ConfirmAcceptedRequest(ctx context.Context, senderID, recipientID string) error
	// RemoveIncomingRequest drops a pending request, guarded by its existence.
	RemoveIncomingRequest(ctx context.Context, recipientID, senderID string) error
	RemoveSentRequest(ctx context.Context, senderID, recipientID string) error
}

// DynamoUserStore implements UserStore on the Users table.
type DynamoUserStore struct {
	Dynamo *DynamoService
}

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: id},
	}
}

func (s *DynamoUserStore) GetByID(ctx context.Context, id string) (*models.User, error) {
	item, err := s.Dynamo.GetItem(ctx, models.UsersTable, userKey(id))
	if err != nil {
		return nil, err
	}
	var user models.User
	if err := attributevalue.UnmarshalMap(item, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *DynamoUserStore) findByIndex(ctx context.Context, indexName, attribute, value string) (*models.User, error) {
	keyCondition := "#attr = :value"
	expressionValues := map[string]types.AttributeValue{
		":value": &types.AttributeValueMemberS{Value: value},
	}
	expressionNames := map[string]string{
		"#attr": attribute,
	}

	items, err := s.Dynamo.QueryItemsWithIndex(ctx, models.UsersTable, indexName, keyCondition, expressionValues, expressionNames, 1)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrItemNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(items[0], &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user: %w", err)
	}
	return &user, nil
}

func (s *DynamoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findByIndex(ctx, models.EmailIndex, "email", email)
}

func (s *DynamoUserStore) FindByUserName(ctx context.Context, userName string) (*models.User, error) {
	return s.findByIndex(ctx, models.UserNameIndex, "userName", userName)
}

// uniqueMarker reserves an email or userName in the id keyspace of the Users
// table ("email#<email>" / "userName#<name>"). The markers carry no indexed
// attributes, so GSI lookups never see them.
type uniqueMarker struct {
	ID string `dynamodbav:"id"`
}

// Create writes the user row and both uniqueness markers in one transaction.
// A uuid collision or a taken email/userName cancels the whole transaction
// with ErrConditionFailed.
func (s *DynamoUserStore) Create(ctx context.Context, user *models.User) error {
	return s.Dynamo.TransactPutIfAbsent(ctx, models.UsersTable, "id",
		user,
		uniqueMarker{ID: "email#" + user.Email},
		uniqueMarker{ID: "userName#" + user.UserName},
	)
}

func (s *DynamoUserStore) SetRefreshToken(ctx context.Context, id, token string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"SET refreshToken = :rt, updatedAt = :ua",
		"attribute_exists(id)",
		userKey(id),
		map[string]types.AttributeValue{
			":rt": &types.AttributeValueMemberS{Value: token},
			":ua": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"REMOVE refreshToken SET updatedAt = :ua",
		"attribute_exists(id)",
		userKey(id),
		map[string]types.AttributeValue{
			":ua": &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func stringSet(ids ...string) *types.AttributeValueMemberSS {
	return &types.AttributeValueMemberSS{Value: ids}
}

func (s *DynamoUserStore) AddIncomingRequest(ctx context.Context, recipientID, senderID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"ADD incomingFriendRequests :sender SET updatedAt = :ua",
		"attribute_exists(id) AND (attribute_not_exists(incomingFriendRequests) OR NOT contains(incomingFriendRequests, :senderId)) AND (attribute_not_exists(friends) OR NOT contains(friends, :senderId))",
		userKey(recipientID),
		map[string]types.AttributeValue{
			":sender":   stringSet(senderID),
			":senderId": &types.AttributeValueMemberS{Value: senderID},
			":ua":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) AddSentRequest(ctx context.Context, senderID, recipientID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"ADD sentFriendRequests :recipient SET updatedAt = :ua",
		"attribute_exists(id)",
		userKey(senderID),
		map[string]types.AttributeValue{
			":recipient": stringSet(recipientID),
			":ua":        &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) AcceptIncomingRequest(ctx context.Context, recipientID, senderID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"ADD friends :sender DELETE incomingFriendRequests :sender SET updatedAt = :ua",
		"contains(incomingFriendRequests, :senderId) AND (attribute_not_exists(friends) OR NOT contains(friends, :senderId))",
		userKey(recipientID),
		map[string]types.AttributeValue{
			":sender":   stringSet(senderID),
			":senderId": &types.AttributeValueMemberS{Value: senderID},
			":ua":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) ConfirmAcceptedRequest(ctx context.Context, senderID, recipientID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"ADD friends :recipient DELETE sentFriendRequests :recipient SET updatedAt = :ua",
		"attribute_exists(id)",
		userKey(senderID),
		map[string]types.AttributeValue{
			":recipient": stringSet(recipientID),
			":ua":        &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) RemoveIncomingRequest(ctx context.Context, recipientID, senderID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"DELETE incomingFriendRequests :sender SET updatedAt = :ua",
		"contains(incomingFriendRequests, :senderId)",
		userKey(recipientID),
		map[string]types.AttributeValue{
			":sender":   stringSet(senderID),
			":senderId": &types.AttributeValueMemberS{Value: senderID},
			":ua":       &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func (s *DynamoUserStore) RemoveSentRequest(ctx context.Context, senderID, recipientID string) error {
	_, err := s.Dynamo.UpdateItem(ctx, models.UsersTable,
		"DELETE sentFriendRequests :recipient SET updatedAt = :ua",
		"attribute_exists(id)",
		userKey(senderID),
		map[string]types.AttributeValue{
			":recipient": stringSet(recipientID),
			":ua":        &types.AttributeValueMemberS{Value: nowRFC3339()},
		},
		nil,
	)
	return err
}

func nowRFC3339() string {
	return time.Now().UTC().Format(time.RFC3339)
}
