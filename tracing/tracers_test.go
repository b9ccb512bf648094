package tracing

import (
	"bytes"
	"encoding/json"
	"log"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/mock/gomock"
)

func fakeClock(start time.Time, step time.Duration) func() time.Time {
	now := start

	return func() time.Time {
		t := now
		now = now.Add(step)

		return t
	}
}

var _ = Describe("StepCountTracer", func() {
	It("should count steps and tasks", func() {
		t := NewStepCountTracer(KindIs("translation"))

		t.StartTask(Task{ID: "1", Kind: "translation"})
		t.StartTask(Task{ID: "2", Kind: "translation"})
		t.StartTask(Task{ID: "3", Kind: "map"})

		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "walk"}}})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "walk"}}})
		t.StepTask(Task{ID: "2", Steps: []TaskStep{{What: "walk"}}})
		t.StepTask(Task{ID: "3", Steps: []TaskStep{{What: "walk"}}})

		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "2"})

		Expect(t.GetStepNames()).To(Equal([]string{"walk"}))
		Expect(t.GetStepCount("walk")).To(Equal(uint64(3)))
		Expect(t.GetTaskCount("walk")).To(Equal(uint64(2)))
	})
})

var _ = Describe("LogTracer", func() {
	It("should print finished tasks", func() {
		buf := new(bytes.Buffer)
		t := NewLogTracer(log.New(buf, "", 0), nil)
		t.now = fakeClock(time.Unix(0, 0), time.Millisecond)

		t.StartTask(Task{
			ID: "1", Kind: "translation", What: "read", Location: "Core[0]",
		})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "tlb-miss"}}})
		t.EndTask(Task{ID: "1"})

		Expect(buf.String()).To(Equal(
			"Core[0], 1, translation, read, 2ms, [tlb-miss]\n"))
	})

	It("should ignore tasks that never started", func() {
		buf := new(bytes.Buffer)
		t := NewLogTracer(log.New(buf, "", 0), nil)

		t.StepTask(Task{ID: "9", Steps: []TaskStep{{What: "x"}}})
		t.EndTask(Task{ID: "9"})

		Expect(buf.Len()).To(Equal(0))
	})
})

var _ = Describe("DBTracer", func() {
	var (
		mockCtrl *gomock.Controller
		recorder *MockDataRecorder
		t        *DBTracer
	)

	BeforeEach(func() {
		mockCtrl = gomock.NewController(GinkgoT())
		recorder = NewMockDataRecorder(mockCtrl)
		recorder.EXPECT().CreateTable(TaskTableName, gomock.Any())

		t = NewDBTracer(recorder, nil)
		t.now = fakeClock(time.Unix(100, 0), time.Second)
		t.origin = time.Unix(100, 0)
	})

	AfterEach(func() {
		mockCtrl.Finish()
	})

	It("should insert a row when a task ends", func() {
		var entry taskTableEntry

		recorder.EXPECT().
			InsertData(TaskTableName, gomock.Any()).
			Do(func(_ string, e any) { entry = e.(taskTableEntry) })

		t.StartTask(Task{
			ID: "1", ParentID: "0", Kind: "map", What: "0x124000",
			Location: "PageTable",
		})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "alloc"}}})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "store"}}})
		t.EndTask(Task{ID: "1"})

		Expect(entry.ID).To(Equal("1"))
		Expect(entry.ParentID).To(Equal("0"))
		Expect(entry.Location).To(Equal("PageTable"))
		Expect(entry.StartTime).To(Equal(0.0))
		Expect(entry.EndTime).To(Equal(1.0))
		Expect(entry.Steps).To(Equal("alloc,store"))
	})

	It("should flush on terminate", func() {
		recorder.EXPECT().Flush()

		t.StartTask(Task{ID: "1", Kind: "map", What: "x"})
		t.Terminate()
		t.EndTask(Task{ID: "1"})
	})
})

var _ = Describe("TimeTracer", func() {
	It("should sum and average the durations of matching tasks", func() {
		t := NewTimeTracer(KindIs("translation"))
		t.now = fakeClock(time.Unix(0, 0), time.Millisecond)

		t.StartTask(Task{ID: "1", Kind: "translation"})
		t.StartTask(Task{ID: "2", Kind: "translation"})
		t.StartTask(Task{ID: "3", Kind: "map"})
		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "3"})
		t.EndTask(Task{ID: "2"})

		Expect(t.TotalCount()).To(Equal(uint64(2)))
		Expect(t.TotalTime()).To(Equal(4 * time.Millisecond))
		Expect(t.AverageTime()).To(Equal(2 * time.Millisecond))
	})

	It("should report zero before any task finishes", func() {
		t := NewTimeTracer(nil)

		t.StartTask(Task{ID: "1"})

		Expect(t.AverageTime()).To(BeZero())
		Expect(t.TotalCount()).To(BeZero())
	})
})

var _ = Describe("JSONTracer", func() {
	It("should write finished tasks as an array", func() {
		buf := new(bytes.Buffer)
		t := NewJSONTracer(buf, nil)
		t.now = fakeClock(time.Unix(0, 0).UTC(), time.Second)

		t.StartTask(Task{ID: "1", Kind: "map", What: "0x124000"})
		t.StartTask(Task{ID: "2", Kind: "unmap", What: "0x124000"})
		t.StepTask(Task{ID: "1", Steps: []TaskStep{{What: "alloc-leaf-table"}}})
		t.EndTask(Task{ID: "1"})
		t.EndTask(Task{ID: "2"})
		t.Close()
		t.EndTask(Task{ID: "3"})

		var tasks []Task
		Expect(json.Unmarshal(buf.Bytes(), &tasks)).To(Succeed())

		Expect(tasks).To(HaveLen(2))
		Expect(tasks[0].Kind).To(Equal("map"))
		Expect(tasks[0].Steps).To(HaveLen(1))
		Expect(tasks[0].Steps[0].What).To(Equal("alloc-leaf-table"))
		Expect(tasks[0].EndTime.Sub(tasks[0].StartTime)).
			To(Equal(3 * time.Second))
		Expect(tasks[1].ID).To(Equal("2"))
	})

	It("should write an empty array when nothing ran", func() {
		buf := new(bytes.Buffer)
		t := NewJSONTracer(buf, nil)
		t.Close()
		t.Close()

		var tasks []Task
		Expect(json.Unmarshal(buf.Bytes(), &tasks)).To(Succeed())
		Expect(tasks).To(BeEmpty())
	})
})
