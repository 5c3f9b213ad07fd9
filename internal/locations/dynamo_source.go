package locations

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/bbernstein/floodwatch/backend-go/internal/models"
	"github.com/rs/zerolog/log"
)

const defaultTableName = "gauge-locations"

// DynamoDBClient is the subset of the DynamoDB API the source needs.
type DynamoDBClient interface {
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

// DynamoSource loads location reference data from a DynamoDB table.
type DynamoSource struct {
	client    DynamoDBClient
	tableName string
}

func NewDynamoSource(client DynamoDBClient, tableName string) *DynamoSource {
	if tableName == "" {
		tableName = defaultTableName
	}
	return &DynamoSource{
		client:    client,
		tableName: tableName,
	}
}

// Load scans the whole table. Invalid rows are skipped and logged.
func (s *DynamoSource) Load(ctx context.Context) ([]models.LocationInfo, error) {
	var (
		infos    []models.LocationInfo
		startKey map[string]types.AttributeValue
	)

	for {
		out, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning locations table: %w", err)
		}

		var page []models.LocationInfo
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshaling locations: %w", err)
		}

		for _, info := range page {
			if err := info.Validate(); err != nil {
				log.Warn().Err(err).Str("location_id", info.ID).Msg("Skipping invalid location")
				continue
			}
			infos = append(infos, info)
		}

		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		startKey = out.LastEvaluatedKey
	}

	log.Debug().Int("count", len(infos)).Str("table", s.tableName).Msg("Loaded locations")
	return infos, nil
}

// Refresh loads the table into catalog.
func (s *DynamoSource) Refresh(ctx context.Context, catalog *Catalog) error {
	infos, err := s.Load(ctx)
	if err != nil {
		return err
	}
	catalog.Replace(infos)
	return nil
}

// Save writes one location.
func (s *DynamoSource) Save(ctx context.Context, info models.LocationInfo) error {
	if err := info.Validate(); err != nil {
		return fmt.Errorf("invalid location: %w", err)
	}

	item, err := attributevalue.MarshalMap(info)
	if err != nil {
		return fmt.Errorf("marshaling location: %w", err)
	}

	if _, err := s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	}); err != nil {
		return fmt.Errorf("putting location in DynamoDB: %w", err)
	}
	return nil
}
