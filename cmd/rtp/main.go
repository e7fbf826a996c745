// Command rtp runs a Monte Carlo simulation of the spin pipeline and
// reports the observed return-to-player against the profile target.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"gemrush/internal/config"
	"gemrush/internal/game/pipeline"
	"gemrush/internal/game/rng"
	"gemrush/internal/state"
)

func main() {
	var (
		spins       = flag.Int("spins", 1_000_000, "number of base-mode spin rounds (free spins play out in full)")
		bet         = flag.Float64("bet", 1.00, "bet per spin")
		workers     = flag.Int("workers", 8, "parallel simulation workers")
		profileName = flag.String("profile", config.ProfileStandard, "math profile name")
		configFile  = flag.String("config", "", "optional profile overlay file")
	)
	flag.Parse()

	p, err := loadProfile(*profileName, *configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "profile: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Simulating %d rounds at bet %.2f on profile %q with %d workers\n",
		*spins, *bet, p.Name, *workers)

	bar := pb.StartNew(*spins)
	var (
		totalBet   atomic.Uint64 // cents
		totalWin   atomic.Uint64 // cents
		maxWinHits atomic.Uint64
		fsTriggers atomic.Uint64
		winRounds  atomic.Uint64
	)

	perRound := *spins / *workers
	g, _ := errgroup.WithContext(context.Background())
	winsPerWorker := make([][]float64, *workers)

	for w := 0; w < *workers; w++ {
		w := w
		n := perRound
		if w == *workers-1 {
			n += *spins % *workers
		}
		g.Go(func() error {
			svc := rng.NewService()
			playerID := svc.UUID()
			wins := make([]float64, 0, n)

			for i := 0; i < n; i++ {
				st := state.New(playerID)
				roundBet, roundWin, stats, err := playRound(p, st, *bet, svc)
				if err != nil {
					return err
				}
				totalBet.Add(uint64(roundBet*100 + 0.5))
				totalWin.Add(uint64(roundWin*100 + 0.5))
				maxWinHits.Add(stats.maxWinHits)
				fsTriggers.Add(stats.fsTriggers)
				if roundWin > 0 {
					winRounds.Add(1)
				}
				wins = append(wins, roundWin/roundBet)
				bar.Increment()
			}
			winsPerWorker[w] = wins
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		bar.Finish()
		fmt.Fprintf(os.Stderr, "simulation: %v\n", err)
		os.Exit(1)
	}
	bar.Finish()

	var all []float64
	for _, wins := range winsPerWorker {
		all = append(all, wins...)
	}

	rtp := float64(totalWin.Load()) / float64(totalBet.Load())
	mean, stddev := stat.MeanStdDev(all, nil)
	stderr := stat.StdErr(stddev, float64(len(all)))

	fmt.Printf("\nRounds:           %d\n", len(all))
	fmt.Printf("Total bet:        %.2f\n", float64(totalBet.Load())/100)
	fmt.Printf("Total win:        %.2f\n", float64(totalWin.Load())/100)
	fmt.Printf("Observed RTP:     %.4f (target %.4f)\n", rtp, p.RTPTarget)
	fmt.Printf("Round multiplier: mean %.4f, stddev %.4f, stderr %.5f\n", mean, stddev, stderr)
	fmt.Printf("Hit rate:         %.4f\n", float64(winRounds.Load())/float64(len(all)))
	fmt.Printf("Free spin rate:   %.5f per round\n", float64(fsTriggers.Load())/float64(len(all)))
	fmt.Printf("Max-win hits:     %d\n", maxWinHits.Load())

	if delta := rtp - p.RTPTarget; delta > 0.02 || delta < -0.02 {
		fmt.Printf("\nWARNING: RTP deviates %.4f from target\n", delta)
		os.Exit(2)
	}
}

type roundStats struct {
	maxWinHits uint64
	fsTriggers uint64
}

// playRound runs one base spin and, when free spins trigger, plays the
// whole feature to completion. Returns total bet and win for the round.
func playRound(p *config.MathProfile, st *state.PlayerState, bet float64, svc *rng.Service) (float64, float64, roundStats, error) {
	var stats roundStats
	roundBet := bet
	roundWin := 0.0

	result, err := pipeline.Run(p, st, bet, svc.GenerateSeed())
	if err != nil {
		return 0, 0, stats, err
	}
	roundWin += result.TotalWin
	if result.TotalWin >= bet*p.MaxWinMultiplier {
		stats.maxWinHits++
	}
	if result.FreeSpinInfo.Trigger.Triggered {
		stats.fsTriggers++
	}

	cur := result.NextState
	for cur.Mode == state.ModeFreeSpins {
		result, err = pipeline.Run(p, &cur, bet, svc.GenerateSeed())
		if err != nil {
			return 0, 0, stats, err
		}
		roundWin += result.TotalWin
		if result.TotalWin >= bet*p.MaxWinMultiplier {
			stats.maxWinHits++
		}
		cur = result.NextState
	}

	return roundBet, roundWin, stats, nil
}

func loadProfile(name, file string) (*config.MathProfile, error) {
	if file != "" {
		return config.LoadProfileFile(file)
	}
	return config.ByName(name)
}
