// Copyright Fuzamei Corp. 2018 All Rights Reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package mem

import (
	"testing"

	comdb "github.com/33cn/functest/common/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGoMemDBGetSet(t *testing.T) {
	db := NewGoMemDB()
	defer db.Close()

	_, err := db.Get([]byte("missing"))
	assert.Equal(t, comdb.ErrNotFoundInDb, err)

	require.NoError(t, db.Set([]byte("a"), []byte("1")))
	v, err := db.Get([]byte("a"))
	require.NoError(t, err)
	assert.Equal(t, []byte("1"), v)

	require.NoError(t, db.Set([]byte("empty"), []byte{}))
	v, err = db.Get([]byte("empty"))
	require.NoError(t, err)
	assert.Len(t, v, 0)

	require.NoError(t, db.Delete([]byte("a")))
	require.NoError(t, db.Delete([]byte("a")))
	_, err = db.Get([]byte("a"))
	assert.Equal(t, comdb.ErrNotFoundInDb, err)
}

func TestGoMemDBBatchAndIterator(t *testing.T) {
	db := NewGoMemDB()
	batch := db.NewBatch()
	batch.Set([]byte("p/1"), []byte("one"))
	batch.Set([]byte("p/2"), []byte("two"))
	batch.Set([]byte("q/1"), []byte("other"))
	batch.Delete([]byte("p/3"))
	assert.Equal(t, 4, batch.ValueLen())
	require.NoError(t, batch.Write())
	batch.Reset()
	assert.Equal(t, 0, batch.ValueLen())
	assert.Equal(t, 3, db.Len())

	it := db.Iterator([]byte("p/"))
	defer it.Close()
	var keys, values []string
	for it.Next() {
		keys = append(keys, string(it.Key()))
		values = append(values, string(it.Value()))
	}
	require.NoError(t, it.Error())
	assert.Equal(t, []string{"p/1", "p/2"}, keys)
	assert.Equal(t, []string{"one", "two"}, values)
}

func TestBytesPrefix(t *testing.T) {
	assert.Equal(t, []byte("p0"), comdb.BytesPrefix([]byte("p/")))
	assert.Nil(t, comdb.BytesPrefix([]byte{0xff}))
}
