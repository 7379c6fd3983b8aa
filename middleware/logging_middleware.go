package middleware

import (
	"duplexhttp/message"
	"log"
	"time"
)

// Logging records the size of each delivered batch and how long the
// wrapped handler (ultimately, the application's onMessages callback)
// actually took to process it, including any time spent after an inner
// Deadline has given up waiting. It never delays the caller: the log
// line is written from a goroutine once the handler's real completion
// channel closes, and the channel itself is passed straight through
// unwrapped so callers further up still observe the true signal.
//
// Example output:
//
//	delivered 3 message(s) in 42µs
func Logging() DeliverMiddleware {
	return func(next DeliverFunc) DeliverFunc {
		return func(batch []message.Message) <-chan struct{} {
			start := time.Now()
			done := next(batch)
			go func() {
				<-done
				log.Printf("delivered %d message(s) in %s", len(batch), time.Since(start))
			}()
			return done
		}
	}
}
