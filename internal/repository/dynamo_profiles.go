package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// DynamoDBAPI is the subset of the DynamoDB client used by DynamoProfiles.
type DynamoDBAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
}

// stringSet marshals as a DynamoDB string set so that ADD performs a set
// union.
type stringSet []string

// MarshalDynamoDBAttributeValue encodes the set as an SS attribute.
func (s stringSet) MarshalDynamoDBAttributeValue() (types.AttributeValue, error) {
	return &types.AttributeValueMemberSS{Value: s}, nil
}

// DynamoProfiles stores one item per user id in a DynamoDB table.
type DynamoProfiles struct {
	client DynamoDBAPI
	table  string
	now    func() time.Time
}

// NewDynamoProfiles constructs a DynamoProfiles.
func NewDynamoProfiles(client DynamoDBAPI, table string) *DynamoProfiles {
	return &DynamoProfiles{
		client: client,
		table:  table,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *DynamoProfiles) key(userID string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"id": &types.AttributeValueMemberS{Value: userID},
	}
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

func decodeProfile(item map[string]types.AttributeValue) (*model.Profile, error) {
	var p model.Profile
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, fmt.Errorf("unmarshal profile: %w", err)
	}
	p.Normalize()
	return &p, nil
}

// GetOrCreate returns the profile for identity.ID, creating it on first
// sign-in. Creation is a conditional put, so concurrent first sign-ins
// produce a single item. Existing items get lastLoginAt and any non-empty
// display fields refreshed.
func (r *DynamoProfiles) GetOrCreate(ctx context.Context, identity model.Identity) (*model.Profile, bool, error) {
	fresh := model.NewProfile(identity, r.now())
	item, err := attributevalue.MarshalMap(fresh)
	if err != nil {
		return nil, false, fmt.Errorf("marshal profile: %w", err)
	}

	_, err = r.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err == nil {
		return fresh, true, nil
	}
	if !isConditionFailed(err) {
		return nil, false, fmt.Errorf("put profile: %w", err)
	}

	update := expression.Set(expression.Name("lastLoginAt"), expression.Value(fresh.LastLoginAt.Unix()))
	for name, value := range map[string]string{"name": identity.Name, "email": identity.Email, "avatar": identity.Avatar} {
		if value != "" {
			update = update.Set(expression.Name(name), expression.Value(value))
		}
	}
	p, err := r.updateExisting(ctx, identity.ID, update, expression.AttributeExists(expression.Name("id")))
	if err != nil {
		return nil, false, err
	}
	return p, false, nil
}

// Get returns the profile for userID or model.ErrNotFound.
func (r *DynamoProfiles) Get(ctx context.Context, userID string) (*model.Profile, error) {
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            r.key(userID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, model.ErrNotFound
	}
	return decodeProfile(out.Item)
}

// updateExisting runs an update guarded by cond and returns the new item.
// A failed condition on a missing item maps to model.ErrNotFound.
func (r *DynamoProfiles) updateExisting(ctx context.Context, userID string, update expression.UpdateBuilder, cond expression.ConditionBuilder) (*model.Profile, error) {
	expr, err := expression.NewBuilder().WithUpdate(update).WithCondition(cond).Build()
	if err != nil {
		return nil, fmt.Errorf("build update expression: %w", err)
	}

	out, err := r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.table),
		Key:                       r.key(userID),
		UpdateExpression:          expr.Update(),
		ConditionExpression:       expr.Condition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return nil, model.ErrNotFound
		}
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return decodeProfile(out.Attributes)
}

func exists() expression.ConditionBuilder {
	return expression.AttributeExists(expression.Name("id"))
}

// AddEvent mirrors eventID into the user's registered events. ADD on a string
// set is a union, so repeated calls are harmless.
func (r *DynamoProfiles) AddEvent(ctx context.Context, userID, eventID string) error {
	update := expression.Add(expression.Name("registeredEvents"), expression.Value(stringSet{eventID})).
		Set(expression.Name("metadata.lastEventRegistration"), expression.Value(eventID)).
		Set(expression.Name("updatedAt"), expression.Value(r.now().Unix()))
	_, err := r.updateExisting(ctx, userID, update, exists())
	return err
}

// AwardXP credits xp for a completed event once. The completed-events check
// and the increment are one conditional update.
func (r *DynamoProfiles) AwardXP(ctx context.Context, userID, eventID string, xp int) (bool, error) {
	if xp < 0 {
		return false, fmt.Errorf("award xp: negative amount %d", xp)
	}

	update := expression.Add(expression.Name("xp"), expression.Value(xp)).
		Add(expression.Name("completedEvents"), expression.Value(stringSet{eventID})).
		Set(expression.Name("metadata.totalEventsCompleted"),
			expression.Plus(expression.Name("metadata.totalEventsCompleted"), expression.Value(1))).
		Set(expression.Name("metadata.totalXPEarned"),
			expression.Plus(expression.Name("metadata.totalXPEarned"), expression.Value(xp))).
		Set(expression.Name("updatedAt"), expression.Value(r.now().Unix()))
	cond := exists().And(expression.Not(expression.Contains(expression.Name("completedEvents"), eventID)))

	_, err := r.updateExisting(ctx, userID, update, cond)
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, model.ErrNotFound) {
		return false, err
	}
	// The condition failed: either the profile is missing or the event was
	// already credited.
	if _, err := r.Get(ctx, userID); err != nil {
		return false, err
	}
	return false, nil
}

// UpdatePreferences applies a partial preferences change.
func (r *DynamoProfiles) UpdatePreferences(ctx context.Context, userID string, u model.PreferencesUpdate) (*model.Profile, error) {
	update := expression.Set(expression.Name("updatedAt"), expression.Value(r.now().Unix()))
	if u.Notifications != nil {
		update = update.Set(expression.Name("preferences.notifications"), expression.Value(*u.Notifications))
	}
	if u.EmailUpdates != nil {
		update = update.Set(expression.Name("preferences.emailUpdates"), expression.Value(*u.EmailUpdates))
	}
	if u.Language != nil {
		update = update.Set(expression.Name("preferences.language"), expression.Value(*u.Language))
	}
	return r.updateExisting(ctx, userID, update, exists())
}

// AddSkill adds a skill to the profile's skill set.
func (r *DynamoProfiles) AddSkill(ctx context.Context, userID, skill string) error {
	update := expression.Add(expression.Name("skills"), expression.Value(stringSet{skill})).
		Set(expression.Name("updatedAt"), expression.Value(r.now().Unix()))
	_, err := r.updateExisting(ctx, userID, update, exists())
	return err
}

// RecordView remembers the last event the user opened.
func (r *DynamoProfiles) RecordView(ctx context.Context, userID, eventID string) error {
	update := expression.Set(expression.Name("metadata.lastEventView"), expression.Value(eventID))
	_, err := r.updateExisting(ctx, userID, update, exists())
	return err
}
