package grpcstore

import (
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/opd-ai/mpid/chunkstore"
)

func mapRPC(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	switch st.Code() {
	case codes.NotFound:
		return chunkstore.ErrNotFound
	case codes.AlreadyExists:
		return chunkstore.ErrImmutable
	case codes.DataLoss:
		return fmt.Errorf("%w: %s", chunkstore.ErrCorrupt, st.Message())
	case codes.InvalidArgument:
		if st.Message() == ErrInvalidNamespace.Error() {
			return ErrInvalidNamespace
		}
		return err
	default:
		return err
	}
}
