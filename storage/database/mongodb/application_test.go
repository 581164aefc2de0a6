package mongorepos

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
)

var errDuplicateID = mongo.WriteException{WriteErrors: []mongo.WriteError{{Code: 11000, Message: "E11000 duplicate key error"}}}

func Test_upsertBucket(t *testing.T) {
	errNetwork := errors.New("connection refused")

	tests := []struct {
		name      string
		results   []error
		wantCalls int
		wantDup   bool
		wantErr   error
	}{
		{name: "inserted", results: []error{nil}, wantCalls: 1},
		{name: "lost the bucket race", results: []error{errDuplicateID, nil}, wantCalls: 2},
		{name: "already applied", results: []error{errDuplicateID, errDuplicateID}, wantCalls: 2, wantDup: true},
		{name: "other error", results: []error{errNetwork}, wantCalls: 1, wantErr: errNetwork},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			err := upsertBucket(func() error {
				res := tt.results[calls]
				calls++
				return res
			})
			assert.Equal(t, tt.wantCalls, calls)
			switch {
			case tt.wantDup:
				assert.True(t, mongo.IsDuplicateKeyError(err), err)
			case tt.wantErr != nil:
				assert.Equal(t, tt.wantErr, err)
			default:
				assert.NoError(t, err)
			}
		})
	}
}
