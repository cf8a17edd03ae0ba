package tasks

import (
	"minter/log"
	"minter/util"
	"time"
)

// Progress reports which step of the procedure is running.
type Progress struct {
	Total     int
	Done      int
	InitTime  time.Time
	StepName  string
	StepStart time.Time
}

func newProgress(total int) *Progress {
	return &Progress{
		Total:    total,
		InitTime: time.Now(),
	}
}

func (p *Progress) begin(name string) {
	p.StepName = name
	p.StepStart = time.Now()
	log.Printf("[%d/%d] %s\n", p.Done+1, p.Total, name)
}

func (p *Progress) finish() {
	p.Done++
	elapsed := util.DurationToHuman(time.Since(p.StepStart))
	log.Printf("[%d/%d] %s done (%s)\n", p.Done, p.Total, p.StepName, elapsed)
}

// Elapsed returns human readable time since the procedure started.
func (p *Progress) Elapsed() string {
	return util.DurationToHuman(time.Since(p.InitTime))
}
