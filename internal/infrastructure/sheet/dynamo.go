package sheet

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/barease/backend/internal/domain"
	"github.com/barease/backend/internal/logging"
)

// DynamoAPI is the subset of the DynamoDB client used by the repository
type DynamoAPI interface {
	dynamodb.QueryAPIClient
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

// Repository stores sheet rows in a single DynamoDB partition
type Repository struct {
	client    DynamoAPI
	tableName string
}

// NewRepository creates a new DynamoDB sheet repository
func NewRepository(client DynamoAPI, tableName string) *Repository {
	return &Repository{client: client, tableName: tableName}
}

// ListRows implements domain.SheetRepository
func (r *Repository) ListRows(ctx context.Context) ([]domain.SheetRow, error) {
	keyCond := expression.Key("pk").Equal(expression.Value(domain.SheetPartitionKey))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}

	logging.Ctx(ctx).Debug().Str("component", "sheet").Int("rows", len(rows)).Msg("sheet rows listed")
	return rows, nil
}

// FindByID implements domain.SheetRepository. Rows written before the
// item# sort key convention are found through an id filter.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.SheetRow, error) {
	if id == "" {
		return nil, domain.ErrItemNotFound
	}

	key, err := marshalKey(domain.NewSheetKey(id))
	if err != nil {
		return nil, err
	}
	out, err := r.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(r.tableName),
		Key:       key,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get item %s: %w", id, err)
	}
	if len(out.Item) > 0 {
		row, err := decodeRow(out.Item)
		if err != nil {
			return nil, err
		}
		return &row, nil
	}

	keyCond := expression.Key("pk").Equal(expression.Value(domain.SheetPartitionKey))
	filter := expression.Name("id").Equal(expression.Value(id))
	expr, err := expression.NewBuilder().WithKeyCondition(keyCond).WithFilter(filter).Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}
	rows, err := r.query(ctx, &dynamodb.QueryInput{
		TableName:                 aws.String(r.tableName),
		KeyConditionExpression:    expr.KeyCondition(),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrItemNotFound
	}
	return &rows[0], nil
}

// Update implements domain.SheetRepository
func (r *Repository) Update(ctx context.Context, key domain.SheetKey, update domain.SheetUpdate) error {
	if update.Empty() {
		return nil
	}

	expr, err := buildUpdateExpression(update)
	if err != nil {
		return err
	}
	itemKey, err := marshalKey(key)
	if err != nil {
		return err
	}

	_, err = r.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(r.tableName),
		Key:                       itemKey,
		UpdateExpression:          expr.Update(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
	if err != nil {
		return fmt.Errorf("failed to update %s: %w", key.SK, err)
	}
	return nil
}

// Delete implements domain.SheetRepository
func (r *Repository) Delete(ctx context.Context, key domain.SheetKey) error {
	itemKey, err := marshalKey(key)
	if err != nil {
		return err
	}
	_, err = r.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key:       itemKey,
	})
	if err != nil {
		return fmt.Errorf("failed to delete %s: %w", key.SK, err)
	}
	return nil
}

func (r *Repository) query(ctx context.Context, input *dynamodb.QueryInput) ([]domain.SheetRow, error) {
	var rows []domain.SheetRow
	var decodeErrs []error

	paginator := dynamodb.NewQueryPaginator(r.client, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query sheet table: %w", err)
		}
		for _, item := range page.Items {
			row, err := decodeRow(item)
			if err != nil {
				decodeErrs = append(decodeErrs, err)
				continue
			}
			rows = append(rows, row)
		}
	}

	if len(decodeErrs) > 0 {
		logging.Ctx(ctx).Warn().
			Err(errors.Join(decodeErrs...)).
			Str("component", "sheet").
			Int("skipped", len(decodeErrs)).
			Msg("skipped undecodable sheet rows")
	}
	return rows, nil
}

func decodeRow(item map[string]types.AttributeValue) (domain.SheetRow, error) {
	var rec record
	if err := attributevalue.UnmarshalMap(item, &rec); err != nil {
		return domain.SheetRow{}, fmt.Errorf("failed to decode sheet row: %w", err)
	}
	return rec.toRow(), nil
}

func marshalKey(key domain.SheetKey) (map[string]types.AttributeValue, error) {
	pk, err := attributevalue.Marshal(key.PK)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}
	sk, err := attributevalue.Marshal(key.SK)
	if err != nil {
		return nil, fmt.Errorf("failed to encode key: %w", err)
	}
	return map[string]types.AttributeValue{"pk": pk, "sk": sk}, nil
}

// buildUpdateExpression renders SET, if_not_exists and REMOVE clauses.
// Names are applied in sorted order so the expression is deterministic.
func buildUpdateExpression(update domain.SheetUpdate) (expression.Expression, error) {
	var builder expression.UpdateBuilder

	for _, name := range sortedNames(update.Set) {
		builder = builder.Set(expression.Name(name), expression.Value(update.Set[name]))
	}
	for _, name := range sortedNames(update.SetIfMissing) {
		builder = builder.Set(expression.Name(name),
			expression.IfNotExists(expression.Name(name), expression.Value(update.SetIfMissing[name])))
	}
	for _, name := range update.Remove {
		builder = builder.Remove(expression.Name(name))
	}

	expr, err := expression.NewBuilder().WithUpdate(builder).Build()
	if err != nil {
		return expression.Expression{}, fmt.Errorf("failed to build update: %w", err)
	}
	return expr, nil
}

func sortedNames(values map[string]any) []string {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
