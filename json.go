package torod

import (
	"bufio"
	"context"
	"encoding/json"
	"os"

	d "github.com/ostafen/torod/document"
	"github.com/ostafen/torod/query"
	"github.com/ostafen/torod/txn"
)

// ExportCollection exports an existing collection to a JSON file.
func (t *Transaction) ExportCollection(ctx context.Context, collectionName string, exportPath string) error {
	if _, err := t.Count(ctx, collectionName).Await(ctx); err != nil {
		return err
	}

	result, err := t.Find(ctx, query.NewQuery(collectionName)).Await(ctx)
	if err != nil {
		return err
	}

	docs := make([]map[string]interface{}, 0, len(result))
	for _, doc := range result {
		docs = append(docs, doc.ToMap())
	}

	jsonString, err := json.Marshal(docs)
	if err != nil {
		return err
	}
	return os.WriteFile(exportPath, jsonString, 0o644)
}

// ImportCollection inserts the documents of a JSON file into a collection.
// Integral numbers are imported as integers.
func (t *Transaction) ImportCollection(ctx context.Context, collectionName string, importPath string, mode txn.WriteFailMode) (txn.InsertResponse, error) {
	file, err := os.Open(importPath)
	if err != nil {
		return txn.InsertResponse{}, err
	}
	defer file.Close()

	decoder := json.NewDecoder(bufio.NewReader(file))
	decoder.UseNumber()

	jsonObjects := make([]map[string]interface{}, 0)
	if err := decoder.Decode(&jsonObjects); err != nil {
		return txn.InsertResponse{}, err
	}

	docs := make([]*d.Document, 0, len(jsonObjects))
	for _, obj := range jsonObjects {
		docs = append(docs, d.NewDocumentOf(convertNumbers(obj)))
	}
	return t.InsertDocuments(ctx, collectionName, docs, mode).Await(ctx)
}

func convertNumbers(v interface{}) interface{} {
	switch vType := v.(type) {
	case json.Number:
		if n, err := vType.Int64(); err == nil {
			return n
		}
		f, _ := vType.Float64()
		return f
	case map[string]interface{}:
		for k, elem := range vType {
			vType[k] = convertNumbers(elem)
		}
	case []interface{}:
		for i, elem := range vType {
			vType[i] = convertNumbers(elem)
		}
	}
	return v
}
