package worker_test

import (
	"context"
	"errors"
	"fmt"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/jackhunterking/adpilot/internal/queue"
	"github.com/jackhunterking/adpilot/internal/worker"
)

var _ = Describe("Worker", func() {
	var (
		consumer  *mockConsumer
		processor *mockProcessor
		w         *worker.Worker
		ctx       context.Context
	)

	msg := func(attempt int) queue.Message {
		return queue.Message{
			ID:             "1700000000000-0",
			TaskType:       queue.TaskTypeSummarize,
			ConversationID: 42,
			Attempt:        attempt,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		consumer = &mockConsumer{}
		processor = &mockProcessor{}
		w = worker.New(consumer, processor, worker.Config{MaxAttempts: 3})
	})

	run := func() {
		go func() {
			defer GinkgoRecover()
			_ = w.Run(ctx)
		}()
		DeferCleanup(w.Stop)
	}

	It("acks a successfully processed message", func() {
		consumer.pending = []queue.Message{msg(1)}
		run()

		Eventually(consumer.acked).Should(HaveLen(1))
		Expect(consumer.requeued()).To(BeEmpty())
		Expect(consumer.deadLettered()).To(BeEmpty())
	})

	It("requeues a failure below the attempt limit", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return errors.New("transient blip")
		}
		consumer.pending = []queue.Message{msg(1)}
		run()

		Eventually(consumer.requeued).Should(HaveLen(1))
		Expect(consumer.deadLettered()).To(BeEmpty())
		Expect(consumer.acked()).To(BeEmpty())
	})

	It("dead-letters a message at the attempt limit", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return errors.New("still broken")
		}
		consumer.pending = []queue.Message{msg(3)}
		run()

		Eventually(consumer.deadLettered).Should(HaveLen(1))
		Expect(consumer.requeued()).To(BeEmpty())
	})

	It("dead-letters permanent failures without burning attempts", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			return fmt.Errorf("%w: unknown task type", worker.ErrPermanent)
		}
		consumer.pending = []queue.Message{msg(1)}
		run()

		Eventually(consumer.deadLettered).Should(HaveLen(1))
		Expect(consumer.requeued()).To(BeEmpty())
	})

	It("treats a processor panic as a retryable failure", func() {
		processor.processFn = func(_ context.Context, _ queue.Message) error {
			panic("nil map write")
		}
		consumer.pending = []queue.Message{msg(1)}
		run()

		Eventually(consumer.requeued).Should(HaveLen(1))
	})
})
