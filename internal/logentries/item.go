package logentries

import (
	"context"
	"sort"

	"github.com/logview/backend/internal/logerr"
	"github.com/logview/backend/internal/models"
)

// LogItem returns every field of one document, sorted by field name.
func (d *Domain) LogItem(ctx context.Context, id string, source *models.SourceConfiguration) (*models.LogEntriesItem, error) {
	const op = "log item"
	if source == nil {
		return nil, logerr.SourceConfigurationMissing(op, "")
	}

	hit, err := d.adapter.FetchByID(ctx, source, id)
	if err != nil {
		return nil, logerr.StoreUnavailable(op, err)
	}
	if hit == nil {
		return nil, logerr.DocumentNotFound(op, id)
	}
	return ConvertHit(hit), nil
}

// LogItemBySource resolves sourceID and returns the document with id.
func (d *Domain) LogItemBySource(ctx context.Context, sourceID, id string) (*models.LogEntriesItem, error) {
	source, err := d.sources.GetSourceConfiguration(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	return d.LogItem(ctx, id, source)
}

// ConvertHit flattens a raw hit into item fields. String leaves are kept as is,
// everything else is JSON encoded.
func ConvertHit(hit *models.LogItemHit) *models.LogEntriesItem {
	flat := models.FlattenFields(hit.Source)
	fields := make([]models.LogItemField, 0, len(flat)+2)
	fields = append(fields,
		models.LogItemField{Field: "_index", Value: hit.Index},
		models.LogItemField{Field: "_id", Value: hit.ID},
	)
	for name, v := range flat {
		value, ok := v.(string)
		if !ok {
			value = EncodeFieldValue(v)
		}
		fields = append(fields, models.LogItemField{Field: name, Value: value})
	}
	sort.SliceStable(fields, func(i, j int) bool { return fields[i].Field < fields[j].Field })

	return &models.LogEntriesItem{
		ID:     hit.ID,
		Index:  hit.Index,
		Key:    models.TimeKey{Time: hit.Sort[0], Tiebreaker: hit.Sort[1]},
		Fields: fields,
	}
}
