// Package awstest holds in-memory stand-ins for the AWS clients, shared by package tests.
package awstest

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// Index describes a global secondary index of a fake table.
type Index struct {
	Name         string
	PartitionKey string
	SortKey      string
}

type table struct {
	pk      string
	indexes map[string]Index
	items   map[string]map[string]types.AttributeValue
}

// FakeDynamo keeps tables as nested maps: table -> pk value -> item.
// It understands the expression shapes the stores in this repo emit.
type FakeDynamo struct {
	mu     sync.Mutex
	tables map[string]*table
	calls  map[string]int
	fail   map[string]error
}

func NewFakeDynamo() *FakeDynamo {
	return &FakeDynamo{
		tables: map[string]*table{},
		calls:  map[string]int{},
		fail:   map[string]error{},
	}
}

// CreateTable registers a table keyed by partitionKey with optional GSIs.
func (f *FakeDynamo) CreateTable(name, partitionKey string, indexes ...Index) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &table{pk: partitionKey, indexes: map[string]Index{}, items: map[string]map[string]types.AttributeValue{}}
	for _, idx := range indexes {
		t.indexes[idx.Name] = idx
	}
	f.tables[name] = t
}

// FailNext makes the next call of op (e.g. "PutItem") return err.
func (f *FakeDynamo) FailNext(op string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fail[op] = err
}

// Calls returns how many times op was invoked.
func (f *FakeDynamo) Calls(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// Item returns the raw item stored under pk, or nil.
func (f *FakeDynamo) Item(tableName, pk string) map[string]types.AttributeValue {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[tableName]
	if !ok {
		return nil
	}
	return copyItem(t.items[pk])
}

// Count returns the number of items in a table.
func (f *FakeDynamo) Count(tableName string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if t, ok := f.tables[tableName]; ok {
		return len(t.items)
	}
	return 0
}

func (f *FakeDynamo) enter(op string) error {
	f.calls[op]++
	if err, ok := f.fail[op]; ok {
		delete(f.fail, op)
		return err
	}
	return nil
}

func (f *FakeDynamo) table(name *string) (*table, error) {
	t, ok := f.tables[aws.ToString(name)]
	if !ok {
		return nil, &types.ResourceNotFoundException{Message: aws.String("table not found: " + aws.ToString(name))}
	}
	return t, nil
}

func (f *FakeDynamo) PutItem(ctx context.Context, in *dyn.PutItemInput, optFns ...func(*dyn.Options)) (*dyn.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("PutItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := keyValue(in.Item, t.pk)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, t.items[pk])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	t.items[pk] = copyItem(in.Item)
	return &dyn.PutItemOutput{}, nil
}

func (f *FakeDynamo) GetItem(ctx context.Context, in *dyn.GetItemInput, optFns ...func(*dyn.Options)) (*dyn.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("GetItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := keyValue(in.Key, t.pk)
	if err != nil {
		return nil, err
	}
	item, ok := t.items[pk]
	if !ok {
		return &dyn.GetItemOutput{}, nil
	}
	return &dyn.GetItemOutput{Item: copyItem(item)}, nil
}

func (f *FakeDynamo) DeleteItem(ctx context.Context, in *dyn.DeleteItemInput, optFns ...func(*dyn.Options)) (*dyn.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("DeleteItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := keyValue(in.Key, t.pk)
	if err != nil {
		return nil, err
	}
	ok, err := evalCondition(aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, t.items[pk])
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}
	delete(t.items, pk)
	return &dyn.DeleteItemOutput{}, nil
}

// UpdateItem supports "SET a = :x, #b = :y" update expressions.
func (f *FakeDynamo) UpdateItem(ctx context.Context, in *dyn.UpdateItemInput, optFns ...func(*dyn.Options)) (*dyn.UpdateItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("UpdateItem"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	pk, err := keyValue(in.Key, t.pk)
	if err != nil {
		return nil, err
	}
	current := t.items[pk]
	ok, err := evalCondition(aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, current)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
	}

	item := copyItem(current)
	if item == nil {
		item = copyItem(in.Key)
	}
	expr := strings.TrimSpace(aws.ToString(in.UpdateExpression))
	if !strings.HasPrefix(expr, "SET ") {
		return nil, fmt.Errorf("awstest: unsupported update expression %q", expr)
	}
	for _, assignment := range strings.Split(strings.TrimPrefix(expr, "SET "), ",") {
		parts := strings.SplitN(assignment, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("awstest: bad assignment %q", assignment)
		}
		name := resolveName(strings.TrimSpace(parts[0]), in.ExpressionAttributeNames)
		v, ok := in.ExpressionAttributeValues[strings.TrimSpace(parts[1])]
		if !ok {
			return nil, fmt.Errorf("awstest: missing value %q", parts[1])
		}
		item[name] = v
	}
	t.items[pk] = item
	return &dyn.UpdateItemOutput{Attributes: copyItem(item)}, nil
}

// Query supports "#pk = :pk", optionally "AND #sk = :sk" or "AND begins_with(#sk, :sk)".
func (f *FakeDynamo) Query(ctx context.Context, in *dyn.QueryInput, optFns ...func(*dyn.Options)) (*dyn.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Query"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	if in.FilterExpression != nil {
		return nil, errors.New("awstest: FilterExpression is not supported")
	}
	idx := Index{PartitionKey: t.pk}
	if in.IndexName != nil {
		var ok bool
		idx, ok = t.indexes[*in.IndexName]
		if !ok {
			return nil, fmt.Errorf("awstest: unknown index %s", *in.IndexName)
		}
	}

	var matched []map[string]types.AttributeValue
	for _, item := range t.items {
		ok, err := evalKeyCondition(aws.ToString(in.KeyConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues, item)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, item)
		}
	}
	sortItems(matched, idx.SortKey, t.pk)
	if in.ScanIndexForward != nil && !*in.ScanIndexForward {
		for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
			matched[i], matched[j] = matched[j], matched[i]
		}
	}

	page, last := window(matched, t.pk, in.ExclusiveStartKey, aws.ToInt32(in.Limit))
	out := &dyn.QueryOutput{Count: int32(len(page))}
	for _, item := range page {
		out.Items = append(out.Items, copyItem(item))
	}
	if last != nil {
		lek := map[string]types.AttributeValue{t.pk: last[t.pk]}
		if idx.PartitionKey != "" {
			lek[idx.PartitionKey] = last[idx.PartitionKey]
		}
		if idx.SortKey != "" {
			lek[idx.SortKey] = last[idx.SortKey]
		}
		out.LastEvaluatedKey = lek
	}
	return out, nil
}

func (f *FakeDynamo) Scan(ctx context.Context, in *dyn.ScanInput, optFns ...func(*dyn.Options)) (*dyn.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("Scan"); err != nil {
		return nil, err
	}
	t, err := f.table(in.TableName)
	if err != nil {
		return nil, err
	}
	var all []map[string]types.AttributeValue
	for _, item := range t.items {
		all = append(all, item)
	}
	sortItems(all, "", t.pk)
	page, last := window(all, t.pk, in.ExclusiveStartKey, aws.ToInt32(in.Limit))
	out := &dyn.ScanOutput{Count: int32(len(page))}
	for _, item := range page {
		out.Items = append(out.Items, copyItem(item))
	}
	if last != nil {
		out.LastEvaluatedKey = map[string]types.AttributeValue{t.pk: last[t.pk]}
	}
	return out, nil
}

// TransactWriteItems applies Put and Delete actions atomically, checking every condition first.
func (f *FakeDynamo) TransactWriteItems(ctx context.Context, in *dyn.TransactWriteItemsInput, optFns ...func(*dyn.Options)) (*dyn.TransactWriteItemsOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter("TransactWriteItems"); err != nil {
		return nil, err
	}

	type action struct {
		t      *table
		pk     string
		item   map[string]types.AttributeValue
		delete bool
	}
	var actions []action
	var reasons []types.CancellationReason
	canceled := false

	for _, it := range in.TransactItems {
		var (
			tableName *string
			key       map[string]types.AttributeValue
			cond      *string
			names     map[string]string
			values    map[string]types.AttributeValue
			item      map[string]types.AttributeValue
			isDelete  bool
		)
		switch {
		case it.Put != nil:
			tableName, key, cond, names, values, item = it.Put.TableName, it.Put.Item, it.Put.ConditionExpression, it.Put.ExpressionAttributeNames, it.Put.ExpressionAttributeValues, it.Put.Item
		case it.Delete != nil:
			tableName, key, cond, names, values, isDelete = it.Delete.TableName, it.Delete.Key, it.Delete.ConditionExpression, it.Delete.ExpressionAttributeNames, it.Delete.ExpressionAttributeValues, true
		case it.ConditionCheck != nil:
			tableName, key, cond, names, values = it.ConditionCheck.TableName, it.ConditionCheck.Key, it.ConditionCheck.ConditionExpression, it.ConditionCheck.ExpressionAttributeNames, it.ConditionCheck.ExpressionAttributeValues
		default:
			return nil, errors.New("awstest: unsupported transact item")
		}
		t, err := f.table(tableName)
		if err != nil {
			return nil, err
		}
		pk, err := keyValue(key, t.pk)
		if err != nil {
			return nil, err
		}
		ok, err := evalCondition(aws.ToString(cond), names, values, t.items[pk])
		if err != nil {
			return nil, err
		}
		if !ok {
			canceled = true
			reasons = append(reasons, types.CancellationReason{Code: aws.String("ConditionalCheckFailed")})
			continue
		}
		reasons = append(reasons, types.CancellationReason{Code: aws.String("None")})
		if item != nil || isDelete {
			actions = append(actions, action{t: t, pk: pk, item: item, delete: isDelete})
		}
	}
	if canceled {
		return nil, &types.TransactionCanceledException{
			Message:             aws.String("Transaction cancelled, please refer cancellation reasons for specific reasons"),
			CancellationReasons: reasons,
		}
	}
	for _, a := range actions {
		if a.delete {
			delete(a.t.items, a.pk)
			continue
		}
		a.t.items[a.pk] = copyItem(a.item)
	}
	return &dyn.TransactWriteItemsOutput{}, nil
}

func window(items []map[string]types.AttributeValue, pk string, start map[string]types.AttributeValue, limit int32) ([]map[string]types.AttributeValue, map[string]types.AttributeValue) {
	from := 0
	if len(start) > 0 {
		startPK := attrString(start[pk])
		for i, item := range items {
			if attrString(item[pk]) == startPK {
				from = i + 1
				break
			}
		}
	}
	if from > len(items) {
		from = len(items)
	}
	rest := items[from:]
	if limit > 0 && int(limit) <= len(rest) {
		page := rest[:limit]
		return page, page[len(page)-1]
	}
	return rest, nil
}

func sortItems(items []map[string]types.AttributeValue, sortKey, pk string) {
	sort.SliceStable(items, func(i, j int) bool {
		if sortKey != "" {
			a, b := attrString(items[i][sortKey]), attrString(items[j][sortKey])
			if a != b {
				return a < b
			}
		}
		return attrString(items[i][pk]) < attrString(items[j][pk])
	})
}

func evalKeyCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	for _, clause := range strings.Split(expr, " AND ") {
		clause = strings.TrimSpace(clause)
		if strings.HasPrefix(clause, "begins_with(") {
			args := strings.Split(strings.TrimSuffix(strings.TrimPrefix(clause, "begins_with("), ")"), ",")
			if len(args) != 2 {
				return false, fmt.Errorf("awstest: bad begins_with %q", clause)
			}
			name := resolveName(strings.TrimSpace(args[0]), names)
			prefix, ok := values[strings.TrimSpace(args[1])]
			if !ok {
				return false, fmt.Errorf("awstest: missing value in %q", clause)
			}
			if !strings.HasPrefix(attrString(item[name]), attrString(prefix)) {
				return false, nil
			}
			continue
		}
		ok, err := evalComparison(clause, names, values, item)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// evalCondition supports OR-of-AND combinations of attribute_exists, attribute_not_exists, = and <>.
func evalCondition(expr string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return true, nil
	}
	for _, disjunct := range strings.Split(expr, " OR ") {
		all := true
		for _, clause := range strings.Split(disjunct, " AND ") {
			clause = strings.Trim(strings.TrimSpace(clause), "()")
			var ok bool
			var err error
			switch {
			case strings.HasPrefix(clause, "attribute_not_exists"):
				name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(clause, "attribute_not_exists")), "()")
				name = resolveName(name, names)
				_, exists := item[name]
				ok = item == nil || !exists
			case strings.HasPrefix(clause, "attribute_exists"):
				name := strings.Trim(strings.TrimSpace(strings.TrimPrefix(clause, "attribute_exists")), "()")
				name = resolveName(name, names)
				_, exists := item[name]
				ok = item != nil && exists
			default:
				ok, err = evalComparison(clause, names, values, item)
			}
			if err != nil {
				return false, err
			}
			if !ok {
				all = false
				break
			}
		}
		if all {
			return true, nil
		}
	}
	return false, nil
}

func evalComparison(clause string, names map[string]string, values map[string]types.AttributeValue, item map[string]types.AttributeValue) (bool, error) {
	op := " = "
	if strings.Contains(clause, " <> ") {
		op = " <> "
	}
	parts := strings.SplitN(clause, op, 2)
	if len(parts) != 2 {
		return false, fmt.Errorf("awstest: unsupported clause %q", clause)
	}
	name := resolveName(strings.TrimSpace(parts[0]), names)
	want, ok := values[strings.TrimSpace(parts[1])]
	if !ok {
		return false, fmt.Errorf("awstest: missing value in %q", clause)
	}
	got, exists := item[name]
	equal := exists && attrString(got) == attrString(want)
	if op == " <> " {
		return !equal, nil
	}
	return equal, nil
}

func resolveName(name string, names map[string]string) string {
	if strings.HasPrefix(name, "#") {
		if resolved, ok := names[name]; ok {
			return resolved
		}
	}
	return name
}

func keyValue(item map[string]types.AttributeValue, pk string) (string, error) {
	v, ok := item[pk]
	if !ok {
		return "", fmt.Errorf("awstest: missing key attribute %s", pk)
	}
	return attrString(v), nil
}

func attrString(v types.AttributeValue) string {
	switch a := v.(type) {
	case *types.AttributeValueMemberS:
		return a.Value
	case *types.AttributeValueMemberN:
		return a.Value
	case *types.AttributeValueMemberBOOL:
		return fmt.Sprintf("%t", a.Value)
	}
	return ""
}

func copyItem(item map[string]types.AttributeValue) map[string]types.AttributeValue {
	if item == nil {
		return nil
	}
	out := make(map[string]types.AttributeValue, len(item))
	for k, v := range item {
		out[k] = v
	}
	return out
}
