package cmd

import (
	"bufio"
	"compress/gzip"
	"container/list"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	dispatch "github.com/markuskont/go-dispatch"
	"github.com/sigmarules/engine"

	plog "github.com/prometheus/common/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// matchCmd represents the match command
var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Evaluate a sigma ruleset against a stream of JSON events",
	Long: `Match reads newline-delimited JSON events from stdin (or a file,
gzip-compressed or not) and reports which loaded rules fire on each one.
For example:

	zcat events.json.gz | sigma match --rules-dir ./rules
	`,
	Run: match,
}

var matchJSON = jsoniter.ConfigCompatibleWithStandardLibrary

func sumList(rx *list.List) int64 {
	if rx.Len() == 0 {
		return 0
	}
	var sum int64
	for e := rx.Front(); e != nil; e = e.Next() {
		sum += e.Value.(time.Duration).Nanoseconds()
	}
	return sum
}

type timeStats struct {
	ID int

	decode *list.List
	match  *list.List
}

func newTimeStats(id int) *timeStats {
	return &timeStats{ID: id, decode: list.New(), match: list.New()}
}

type stats struct {
	start time.Time

	Timestamp     time.Time `json:"timestamp"`
	Count         int       `json:"count"`
	EPS           float64   `json:"eps"`
	AvgDecodeNano int64     `json:"avg_decode_nano"`
	AvgMatchNano  int64     `json:"avg_match_nano"`

	k                int64
	totalDecodeNanos int64
	totalMatchNanos  int64
}

func newStats() *stats { return &stats{start: time.Now()} }

func (s *stats) now() *stats {
	s.Timestamp = time.Now()
	return s
}

func (s stats) since() float64 { return time.Since(s.start).Seconds() }
func (s stats) eps() float64   { return float64(s.Count) / s.since() }

func (s *stats) calculate() *stats {
	s.EPS = s.eps()
	if s.k != 0 {
		s.AvgDecodeNano = s.totalDecodeNanos / s.k
		s.AvgMatchNano = s.totalMatchNanos / s.k
	}
	return s
}

func (s *stats) increment(count int) *stats {
	s.Count += count
	return s
}

func (s stats) String() string {
	return fmt.Sprintf("scanner got %d events, %.2f eps", s.Count, s.eps())
}

func (s stats) json() (string, error) {
	b, err := matchJSON.Marshal(s.calculate())
	return string(b), err
}

func scanLines(input io.Reader, ctx context.Context, logFn func(int, int)) <-chan []byte {
	tx := make(chan []byte, 1)
	go func(ctx context.Context) {
		defer close(tx)
		scanner := bufio.NewScanner(input)
		tick := time.NewTicker(100 * time.Millisecond)
		var count, last int
	loop:
		for scanner.Scan() {
			line := append([]byte{}, scanner.Bytes()...)
			select {
			case <-tick.C:
				if logFn != nil {
					logFn(count, count-last)
				}
				last = count
			default:
			}
			select {
			case <-ctx.Done():
				break loop
			case tx <- line:
				count++
			}
		}
		if err := scanner.Err(); err != nil {
			logrus.Fatal(err)
		}
	}(ctx)
	return tx
}

func open(path string) (io.ReadCloser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if strings.HasSuffix(path, "gz") {
		return gzip.NewReader(file)
	}
	return file, nil
}

// goroutine
func logStats(ingestCh <-chan int, workerCh <-chan timeStats, ctx context.Context) {
	tick := time.NewTicker(viper.GetDuration("sigma.stats.interval"))
	s := newStats()

loop:
	for {
		select {
		case <-tick.C:
			if j, err := s.now().json(); err == nil {
				logrus.Trace(j)
			}
		case count, ok := <-ingestCh:
			if !ok {
				continue loop
			}
			s.increment(count)
		case s2, ok := <-workerCh:
			if !ok {
				continue loop
			}
			s.totalDecodeNanos += sumList(s2.decode)
			s.totalMatchNanos += sumList(s2.match)
			s.k += int64(s2.decode.Len())
		case <-ctx.Done():
			break loop
		}
	}
}

func match(cmd *cobra.Command, args []string) {
	var input io.ReadCloser
	var err error
	if infile := viper.GetString("sigma.input"); infile != "" {
		input, err = open(infile)
		if err != nil {
			plog.Fatal(err)
		}
		defer input.Close()
	} else {
		input = os.Stdin
	}

	rs, err := sigma.NewRuleset(sigma.Config{Directory: viper.GetStringSlice("rules.dir")})
	if err != nil {
		logrus.Fatal(err)
	}
	logrus.Infof("Loaded %d rules (%d failed, %d total files)", rs.OK, rs.Failed, rs.Total)

	ctx := context.Background()
	ingestStatCh := make(chan int)
	workers := viper.GetInt("sigma.workers")
	workerStatCh := make(chan timeStats, workers)

	lines := scanLines(input, ctx, func(count, diff int) {
		ingestStatCh <- diff
	})
	go logStats(ingestStatCh, workerStatCh, ctx)

	if err := dispatch.Run(dispatch.Config{
		Async:   false,
		Workers: workers,
		FeederFunc: func(tasks chan<- dispatch.Task, stop <-chan struct{}) {
			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				tasks <- func(id, count int, ctx context.Context) error {
					defer wg.Done()
					s := newTimeStats(id)
					report := time.NewTicker(time.Second)
				loop:
					for {
						select {
						case l, ok := <-lines:
							if !ok {
								break loop
							}
							start := time.Now()
							var raw map[string]interface{}
							if err := matchJSON.Unmarshal(l, &raw); err != nil {
								logrus.Error(err)
								continue loop
							}
							ev := sigma.EventFromMap(raw)
							s.decode.PushBack(time.Since(start))

							start = time.Now()
							if results, ok := rs.EvalAll(ev); ok {
								for _, r := range results {
									fmt.Printf("MATCH %s: %s\n", r.ID, r.Title)
								}
							}
							s.match.PushBack(time.Since(start))
						case <-report.C:
							if len(workerStatCh) == workers {
								<-workerStatCh
							}
							workerStatCh <- *s
							s = newTimeStats(id)
						}
					}
					return nil
				}
			}
			wg.Wait()
		},
		ErrFunc: func(err error) bool { return true },
	}); err != nil {
		logrus.Fatal(err)
	}
}

func init() {
	rootCmd.AddCommand(matchCmd)

	matchCmd.PersistentFlags().Int("sigma-workers", 4, `Number of workers for sigma matching.`)
	viper.BindPFlag("sigma.workers", matchCmd.PersistentFlags().Lookup("sigma-workers"))

	matchCmd.PersistentFlags().String("sigma-input", "", `Input event file (newline-delimited JSON, optionally gzip-compressed).`)
	viper.BindPFlag("sigma.input", matchCmd.PersistentFlags().Lookup("sigma-input"))

	matchCmd.PersistentFlags().Duration("sigma-stats-interval", time.Second, `Interval between stats logging.`)
	viper.BindPFlag("sigma.stats.interval", matchCmd.PersistentFlags().Lookup("sigma-stats-interval"))
}
