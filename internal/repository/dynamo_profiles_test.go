package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Shivanand-hulikatti/eventportal/internal/model"
)

// fakeDynamo records requests and replays canned responses.
type fakeDynamo struct {
	puts    []*dynamodb.PutItemInput
	updates []*dynamodb.UpdateItemInput
	gets    []*dynamodb.GetItemInput

	putErr    error
	updateOut map[string]types.AttributeValue
	updateErr error
	getItem   map[string]types.AttributeValue
	getErr    error
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dynamodb.GetItemOutput{Item: f.getItem}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.putErr != nil {
		return nil, f.putErr
	}
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	return &dynamodb.UpdateItemOutput{Attributes: f.updateOut}, nil
}

var errConditionFailed = &types.ConditionalCheckFailedException{Message: aws.String("condition failed")}

func storedProfile(t *testing.T, mutate func(p *model.Profile)) map[string]types.AttributeValue {
	t.Helper()
	p := model.NewProfile(alice, time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC))
	if mutate != nil {
		mutate(p)
	}
	item, err := attributevalue.MarshalMap(p)
	require.NoError(t, err)
	return item
}

func TestDynamoGetOrCreateNew(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewDynamoProfiles(fake, "profiles")

	p, created, err := store.GetOrCreate(context.Background(), alice)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "alice", p.ID)

	require.Len(t, fake.puts, 1)
	put := fake.puts[0]
	assert.Equal(t, "profiles", aws.ToString(put.TableName))
	assert.Equal(t, "attribute_not_exists(id)", aws.ToString(put.ConditionExpression))
	assert.Equal(t, &types.AttributeValueMemberS{Value: "alice"}, put.Item["id"])
	_, hasSet := put.Item["registeredEvents"]
	assert.False(t, hasSet, "empty string sets must be omitted")
	assert.Empty(t, fake.updates)
}

func TestDynamoGetOrCreateExisting(t *testing.T) {
	fake := &fakeDynamo{
		putErr: errConditionFailed,
		updateOut: storedProfile(t, func(p *model.Profile) {
			p.XP = 500
			p.RegisteredEvents = []string{"e1"}
		}),
	}
	store := NewDynamoProfiles(fake, "profiles")

	p, created, err := store.GetOrCreate(context.Background(), alice)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, 500, p.XP)
	assert.Equal(t, []string{"e1"}, p.RegisteredEvents)

	require.Len(t, fake.updates, 1)
	upd := fake.updates[0]
	assert.Contains(t, aws.ToString(upd.UpdateExpression), "SET")
	assert.Equal(t, types.ReturnValueAllNew, upd.ReturnValues)

	var names []string
	for _, n := range upd.ExpressionAttributeNames {
		names = append(names, n)
	}
	assert.Subset(t, names, []string{"lastLoginAt", "name", "email", "avatar"})
}

func TestDynamoGetOrCreateKeepsStoredDisplayFields(t *testing.T) {
	fake := &fakeDynamo{putErr: errConditionFailed, updateOut: storedProfile(t, nil)}
	store := NewDynamoProfiles(fake, "profiles")

	_, _, err := store.GetOrCreate(context.Background(), model.Identity{ID: "alice"})
	require.NoError(t, err)

	require.Len(t, fake.updates, 1)
	var names []string
	for _, n := range fake.updates[0].ExpressionAttributeNames {
		names = append(names, n)
	}
	assert.ElementsMatch(t, []string{"id", "lastLoginAt"}, names)
}

func TestDynamoGetOrCreateFailure(t *testing.T) {
	fake := &fakeDynamo{putErr: errors.New("throttled")}
	_, _, err := NewDynamoProfiles(fake, "profiles").GetOrCreate(context.Background(), alice)
	assert.ErrorContains(t, err, "throttled")
}

func TestDynamoGet(t *testing.T) {
	fake := &fakeDynamo{}
	store := NewDynamoProfiles(fake, "profiles")

	_, err := store.Get(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)

	fake.getItem = storedProfile(t, func(p *model.Profile) { p.Skills = []string{"Figma"} })
	p, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"Figma"}, p.Skills)
	assert.NotNil(t, p.CompletedEvents)
	assert.True(t, aws.ToBool(fake.gets[1].ConsistentRead))
}

func TestDynamoAddEventUsesSetUnion(t *testing.T) {
	fake := &fakeDynamo{updateOut: storedProfile(t, nil)}
	store := NewDynamoProfiles(fake, "profiles")

	require.NoError(t, store.AddEvent(context.Background(), "alice", "e1"))

	require.Len(t, fake.updates, 1)
	in := fake.updates[0]
	assert.Contains(t, aws.ToString(in.UpdateExpression), "ADD")
	assert.Contains(t, in.ExpressionAttributeValues, ":0")

	var sawSet bool
	for _, v := range in.ExpressionAttributeValues {
		if ss, ok := v.(*types.AttributeValueMemberSS); ok {
			assert.Equal(t, []string{"e1"}, ss.Value)
			sawSet = true
		}
	}
	assert.True(t, sawSet)
	assert.Contains(t, aws.ToString(in.ConditionExpression), "attribute_exists")

	fake.updateErr = errConditionFailed
	assert.ErrorIs(t, store.AddEvent(context.Background(), "ghost", "e1"), model.ErrNotFound)
}

func TestDynamoAwardXP(t *testing.T) {
	t.Run("credited", func(t *testing.T) {
		fake := &fakeDynamo{updateOut: storedProfile(t, nil)}
		ok, err := NewDynamoProfiles(fake, "profiles").AwardXP(context.Background(), "alice", "e1", 500)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, aws.ToString(fake.updates[0].ConditionExpression), "contains")
	})

	t.Run("already credited", func(t *testing.T) {
		fake := &fakeDynamo{updateErr: errConditionFailed, getItem: storedProfile(t, nil)}
		ok, err := NewDynamoProfiles(fake, "profiles").AwardXP(context.Background(), "alice", "e1", 500)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("missing profile", func(t *testing.T) {
		fake := &fakeDynamo{updateErr: errConditionFailed}
		_, err := NewDynamoProfiles(fake, "profiles").AwardXP(context.Background(), "ghost", "e1", 500)
		assert.ErrorIs(t, err, model.ErrNotFound)
	})

	t.Run("negative", func(t *testing.T) {
		fake := &fakeDynamo{}
		_, err := NewDynamoProfiles(fake, "profiles").AwardXP(context.Background(), "alice", "e1", -5)
		assert.Error(t, err)
		assert.Empty(t, fake.updates)
	})
}

func TestDynamoUpdatePreferences(t *testing.T) {
	fake := &fakeDynamo{updateOut: storedProfile(t, func(p *model.Profile) { p.Preferences.Language = "zh-TW" })}
	lang := "zh-TW"

	p, err := NewDynamoProfiles(fake, "profiles").UpdatePreferences(context.Background(), "alice", model.PreferencesUpdate{Language: &lang})
	require.NoError(t, err)
	assert.Equal(t, "zh-TW", p.Preferences.Language)

	var names []string
	for _, n := range fake.updates[0].ExpressionAttributeNames {
		names = append(names, n)
	}
	assert.Contains(t, names, "preferences")
	assert.Contains(t, names, "language")
	assert.NotContains(t, names, "notifications")
}
