package webhook

import "context"

type Sender interface {
	SendReport(ctx context.Context, filename string, body []byte) error
}
