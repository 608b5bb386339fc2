package stream

import (
	"context"
	"math"

	"github.com/on-the-ground/effect_ive_stream/effects/cause"
	"github.com/on-the-ground/effect_ive_stream/effects/fiber"
	"github.com/on-the-ground/effect_ive_stream/effects/managed"
	"github.com/on-the-ground/effect_ive_stream/effects/promise"
	"github.com/on-the-ground/effect_ive_stream/effects/queue"
	"github.com/on-the-ground/effect_ive_stream/effects/semaphore"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/chunk"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/pull"
	"github.com/on-the-ground/effect_ive_stream/effects/stream/take"
)

// ChainPar runs f(a) for up to n elements of s at the same time and merges
// their outputs through a queue of bufSize takes. Elements of one inner
// stream keep their order; different inner streams interleave.
//
// The first failure of s or of any inner stream interrupts the others and
// fails the result. The result ends once s and every inner stream ended.
func ChainPar[A, B any](s Stream[A], n, bufSize int, f func(A) Stream[B]) Stream[B] {
	return chainPar(s, n, bufSize, f, false)
}

// ChainParSwitch is ChainPar that, when n inner streams are already running,
// interrupts the oldest one to make room for the next element.
func ChainParSwitch[A, B any](s Stream[A], n, bufSize int, f func(A) Stream[B]) Stream[B] {
	return chainPar(s, n, bufSize, f, true)
}

func chainPar[A, B any](s Stream[A], n, bufSize int, f func(A) Stream[B], switching bool) Stream[B] {
	n = max(n, 1)
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[B], error) {
		outer, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}

		out := queue.Bounded[take.Take[B]](bufSize)
		permits := semaphore.New(int64(n))
		innerFailure := promise.Make[struct{}]()
		sv := fiber.NewSupervisor()
		cancelers := queue.Bounded[*promise.Promise[struct{}]](n)

		runInner := func(a A, started, canceler *promise.Promise[struct{}]) func(context.Context) (struct{}, error) {
			return func(ictx context.Context) (struct{}, error) {
				ictx, cancel := context.WithCancel(ictx)
				defer cancel()
				go func() {
					select {
					case <-canceler.Done():
						cancel()
					case <-ictx.Done():
					}
				}()

				return semaphore.WithPermit(ictx, permits, func(ictx context.Context) (struct{}, error) {
					started.Succeed(struct{}{})
					_, err := cause.Catch(func() (struct{}, error) {
						return managed.Use(ictx, f(a).process, func(ictx context.Context, p pull.Pull[B]) (struct{}, error) {
							for {
								c, err := p(ictx)
								if err != nil {
									if pull.IsEnd(err) {
										return struct{}{}, nil
									}
									return struct{}{}, err
								}
								if _, err := out.Offer(ictx, take.Chunk(c)); err != nil {
									return struct{}{}, err
								}
							}
						})
					})
					// The failure is recorded before the permit is given back,
					// so a driver holding every permit has seen it.
					if err != nil {
						c := cause.FromError(err)
						if ictx.Err() == nil || !cause.IsInterruptedOnly(c) {
							innerFailure.Halt(c)
						}
					}
					return struct{}{}, err
				})
			}
		}

		driver := fiber.Fork(ctx, func(fctx context.Context) (struct{}, error) {
			dctx, cancel := context.WithCancel(fctx)
			defer cancel()
			go func() {
				select {
				case <-innerFailure.Done():
					cancel()
				case <-dctx.Done():
				}
			}()

			failWith := func(err error) (struct{}, error) {
				c := cause.FromError(err)
				if innerFailure.IsDone() {
					_, ierr := innerFailure.Poll()
					c = cause.FromError(ierr)
				}
				_ = sv.InterruptAll(context.WithoutCancel(fctx))
				_, err = out.Offer(fctx, take.Die[B](c))
				return struct{}{}, err
			}

			elements := pull.NewBuffered(outer)
			for {
				a, err := cause.Catch(func() (A, error) { return elements.PullElement(dctx) })
				if err != nil {
					if pull.IsEnd(err) {
						break
					}
					return failWith(err)
				}

				canceler := promise.Make[struct{}]()
				if switching {
					if cancelers.Size() >= n {
						if oldest, ok, _ := cancelers.Poll(); ok {
							oldest.Succeed(struct{}{})
						}
					}
					if _, err := cancelers.Offer(dctx, canceler); err != nil {
						return failWith(err)
					}
				}

				started := promise.Make[struct{}]()
				fiber.ForkIn(ctx, sv, runInner(a, started, canceler))
				if _, err := started.Await(dctx); err != nil {
					return failWith(err)
				}
			}

			if err := permits.Acquire(dctx, int64(n)); err != nil {
				return failWith(err)
			}
			permits.Release(int64(n))
			if innerFailure.IsDone() {
				return failWith(context.Canceled)
			}
			_, err := out.Offer(fctx, take.EndOf[B]())
			return struct{}{}, err
		})

		if _, err := rm.Add(ctx, func(ctx context.Context) error {
			driver.InterruptFork()
			_ = sv.InterruptAll(ctx)
			_ = driver.Interrupt(ctx)
			out.Shutdown()
			return nil
		}); err != nil {
			return nil, err
		}

		return takeQueuePull(out), nil
	})
}

// MergeAll runs up to n streams at the same time and merges their elements.
func MergeAll[A any](n, bufSize int, ss ...Stream[A]) Stream[A] {
	return ChainPar(FromSlice(ss), n, bufSize, func(s Stream[A]) Stream[A] { return s })
}

// Merge interleaves the elements of s and that as they arrive.
func Merge[A any](s, that Stream[A]) Stream[A] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[A], error) {
		return MergeAll(2, bufferSize(ctx), s, that).process(ctx, rm)
	})
}

// MergeWith merges s and that after mapping both to a common type.
func MergeWith[A, B, C any](s Stream[A], that Stream[B], left func(A) C, right func(B) C) Stream[C] {
	return Merge(Map(s, left), Map(that, right))
}

// MapMParUnordered runs f for up to n elements at the same time and emits
// the results as they complete.
func MapMParUnordered[A, B any](s Stream[A], n int, f func(context.Context, A) (B, error)) Stream[B] {
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[B], error) {
		return ChainPar(s, n, bufferSize(ctx), func(a A) Stream[B] {
			return FromEffect(func(ctx context.Context) (B, error) { return f(ctx, a) })
		}).process(ctx, rm)
	})
}

// MapMPar runs f for up to n elements at the same time and emits the results
// in the order of s. A failure surfaces when its element's turn comes.
func MapMPar[A, B any](s Stream[A], n int, f func(context.Context, A) (B, error)) Stream[B] {
	n = max(n, 1)
	return FromProcess(func(ctx context.Context, rm *managed.ReleaseMap) (pull.Pull[B], error) {
		upstream, err := s.process(ctx, rm)
		if err != nil {
			return nil, err
		}

		pending := queue.Bounded[take.Take[*fiber.Fiber[B]]](n)
		permits := semaphore.New(int64(n))
		sv := fiber.NewSupervisor()

		driver := fiber.Fork(ctx, func(fctx context.Context) (struct{}, error) {
			elements := pull.NewBuffered(upstream)
			for {
				a, err := cause.Catch(func() (A, error) { return elements.PullElement(fctx) })
				if err != nil {
					_, err = pending.Offer(fctx, take.FromResult(chunk.Empty[*fiber.Fiber[B]](), err))
					return struct{}{}, err
				}
				if err := permits.Acquire(fctx, 1); err != nil {
					return struct{}{}, err
				}
				fb := fiber.ForkIn(ctx, sv, func(ctx context.Context) (B, error) {
					defer permits.Release(1)
					return f(ctx, a)
				})
				if _, err := pending.Offer(fctx, take.Single(fb)); err != nil {
					return struct{}{}, err
				}
			}
		})

		if _, err := rm.Add(ctx, func(ctx context.Context) error {
			_ = driver.Interrupt(ctx)
			_ = sv.InterruptAll(ctx)
			pending.Shutdown()
			return nil
		}); err != nil {
			return nil, err
		}

		fibers := takeQueuePull(pending)
		return func(ctx context.Context) (chunk.Chunk[B], error) {
			fbs, err := fibers(ctx)
			if err != nil {
				return chunk.Empty[B](), err
			}
			out := make([]B, 0, fbs.Len())
			for fb := range fbs.All() {
				b, err := fb.Join(ctx)
				if err != nil {
					return chunk.Empty[B](), err
				}
				out = append(out, b)
			}
			return chunk.Unsafe(out), nil
		}, nil
	})
}

// unbounded is the parallelism of combinators that run one inner stream per
// key.
const unbounded = math.MaxInt32
