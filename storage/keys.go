package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/orderedcode"
	"github.com/ostafen/torod/store"
)

const (
	collectionTag = "c"
	documentTag   = "d"
)

func encodeKey(items ...interface{}) []byte {
	key, err := orderedcode.Append(nil, items...)
	if err != nil {
		panic(err)
	}
	return key
}

func collectionKeyPrefix() []byte {
	return encodeKey(collectionTag)
}

func collectionKey(name string) []byte {
	return encodeKey(collectionTag, name)
}

func documentKeyPrefix(collection string) []byte {
	return encodeKey(documentTag, collection)
}

func rowKey(collection string, seq uint64, rowIdx int) []byte {
	return encodeKey(documentTag, collection, seq, uint64(rowIdx))
}

func parseRowKey(prefix, key []byte) (seq uint64, rowIdx uint64, err error) {
	if _, err := orderedcode.Parse(string(key[len(prefix):]), &seq, &rowIdx); err != nil {
		return 0, 0, fmt.Errorf("invalid row key %x: %w", key, err)
	}
	return seq, rowIdx, nil
}

type collectionMetadata struct {
	CreatedAt time.Time `json:"createdAt"`
	NextSeq   uint64    `json:"nextSeq"`
}

func getCollectionMeta(tx store.Tx, collection string) (*collectionMetadata, error) {
	rawMeta, err := tx.Get(collectionKey(collection))
	if err != nil {
		return nil, err
	}

	if rawMeta == nil {
		return nil, ErrCollectionNotExist
	}

	m := &collectionMetadata{}
	return m, json.Unmarshal(rawMeta, m)
}

func encodeCollectionMeta(meta *collectionMetadata) ([]byte, error) {
	return json.Marshal(meta)
}

// iteratePrefix calls consumer with every item whose key starts with prefix, in key order.
// The store must not be modified by the consumer.
func iteratePrefix(tx store.Tx, prefix []byte, consumer func(item store.Item) error) error {
	cursor, err := tx.Cursor(true, prefix)
	if err != nil {
		return err
	}
	defer cursor.Close()

	if err := cursor.Seek(prefix); err != nil {
		return err
	}

	for ; cursor.Valid(); cursor.Next() {
		item, err := cursor.Item()
		if err != nil {
			return err
		}

		if err := consumer(item); err != nil {
			return err
		}
	}
	return nil
}

func collectKeys(tx store.Tx, prefix []byte) ([][]byte, error) {
	var keys [][]byte
	err := iteratePrefix(tx, prefix, func(item store.Item) error {
		keys = append(keys, item.Key)
		return nil
	})
	return keys, err
}
