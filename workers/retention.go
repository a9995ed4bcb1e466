package workers

import (
	"log"
	"sync"
	"time"

	"github.com/camden-git/requestsysbackend/repository"
	"github.com/camden-git/requestsysbackend/services"
)

// RetentionSweeper periodically removes finished requests that have
// outlived their owner's retention window. It runs on its own schedule
// and tolerates racing with user-initiated deletes: a row that is
// already gone is simply skipped.
type RetentionSweeper struct {
	Requests repository.RequestRepository
	Policy   *services.PolicyService
	Interval time.Duration

	Wg       sync.WaitGroup
	StopChan chan struct{}
}

func NewRetentionSweeper(requests repository.RequestRepository, policy *services.PolicyService, interval time.Duration) *RetentionSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &RetentionSweeper{
		Requests: requests,
		Policy:   policy,
		Interval: interval,
		StopChan: make(chan struct{}),
	}
}

// Start launches the background sweep loop.
func (rs *RetentionSweeper) Start() {
	rs.Wg.Add(1)
	go rs.run()
	log.Printf("started retention sweeper (interval: %s)", rs.Interval)
}

func (rs *RetentionSweeper) run() {
	defer rs.Wg.Done()
	ticker := time.NewTicker(rs.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if deleted, err := rs.Sweep(time.Now()); err != nil {
				log.Printf("ERROR retention sweep failed: %v", err)
			} else if deleted > 0 {
				log.Printf("retention sweep removed %d expired request(s)", deleted)
			}
		case <-rs.StopChan:
			log.Println("retention sweeper stopping: stop signal received")
			return
		}
	}
}

// Sweep scans terminal (available or rejected) requests and deletes
// those whose owner's retention window has elapsed. Non-terminal
// requests are never touched. It returns the number of deleted rows.
func (rs *RetentionSweeper) Sweep(now time.Time) (int, error) {
	terminal, err := rs.Requests.ListTerminal()
	if err != nil {
		return 0, err
	}

	// resolve each owner's policy once per sweep; the resolution is
	// read-only and reflects current role/override state
	policies := make(map[uint]*int)
	deleted := 0
	for _, request := range terminal {
		if !request.Status.IsTerminal() {
			continue
		}

		retention, seen := policies[request.OwnerUserID]
		if !seen {
			policy, err := rs.Policy.ResolvePolicy(request.OwnerUserID)
			if err != nil {
				log.Printf("retention sweep: skipping requests of user %d: %v", request.OwnerUserID, err)
				policies[request.OwnerUserID] = nil
				continue
			}
			retention = policy.RetentionDays
			policies[request.OwnerUserID] = retention
		}
		if retention == nil {
			// keep forever
			continue
		}

		deadline := request.UpdatedAt.Add(time.Duration(*retention) * 24 * time.Hour)
		if now.Before(deadline) {
			continue
		}
		if err := rs.Requests.Delete(request.ID); err != nil {
			log.Printf("ERROR retention sweep: failed to delete request %d: %v", request.ID, err)
			continue
		}
		deleted++
	}
	return deleted, nil
}

// Stop signals the sweep loop to exit and waits for it.
func (rs *RetentionSweeper) Stop() {
	close(rs.StopChan)
	rs.Wg.Wait()
	log.Println("retention sweeper stopped")
}
