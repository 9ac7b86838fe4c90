package routing

// Node emits requests and responses into the overlay. All methods are
// fire-and-forget: a nil error means the item was accepted for delivery,
// not that it arrived.
type Node interface {
	SendPutRequest(src, dst Authority, data Data, id MessageID) error
	SendPostRequest(src, dst Authority, data Data, id MessageID) error
	SendPostFailure(src, dst Authority, request Request, externalError []byte, id MessageID) error
}
