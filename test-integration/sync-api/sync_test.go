package integration

import (
	"errors"
	"net/http"
	"os"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	v1 "github.com/coursesync/sisu-moodle-sync/internal/api/v1"
	"github.com/coursesync/sisu-moodle-sync/internal/course"
	"github.com/coursesync/sisu-moodle-sync/internal/groupsync"
	"github.com/coursesync/sisu-moodle-sync/internal/lock"
	"github.com/coursesync/sisu-moodle-sync/internal/moodle/moodletest"
	"github.com/coursesync/sisu-moodle-sync/internal/process"
	"github.com/coursesync/sisu-moodle-sync/internal/status"
	"github.com/coursesync/sisu-moodle-sync/test-integration/sync-api/helpers"
)

const (
	aliceID int64 = 101
	bobID   int64 = 102
	carolID int64 = 103
	tinaID  int64 = 201
)

var _ = Describe("Sync API", Label("api", "sync"), func() {
	var (
		tempDir      string
		registry     *helpers.FakeRegistry
		lms          *moodletest.Fake
		server       *helpers.ServerTestHelper
		realisation  helpers.RealisationFixture
		withGroups   bool
		importCourse func() *v1.ImportResponse
	)

	BeforeEach(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "sync-api-test-*")
		Expect(err).NotTo(HaveOccurred())

		registry = helpers.NewFakeRegistry()
		registry.PutPerson("s-1", "alice")
		registry.PutPerson("s-2", "bob")
		registry.PutPerson("s-3", "carol")
		registry.PutPerson("t-1", "tina")

		lms = moodletest.New()
		lms.AddUser(aliceID, "alice")
		lms.AddUser(bobID, "bob")
		lms.AddUser(carolID, "carol")
		lms.AddUser(tinaID, "tina")

		realisation = helpers.NewRealisation("otm-1").
			WithTeacher("t-1").
			WithStudent("s-1", "sg-1").
			WithStudent("s-2", "sg-2").
			WithGroupSet("set-1", "sg-1", "sg-2")
		registry.PutRealisation(realisation)

		withGroups = true

		importCourse = func() *v1.ImportResponse {
			var resp v1.ImportResponse
			server.DoJSON(http.MethodPost, "/api/v1/courses",
				v1.ImportRequest{RegistryID: "otm-1", CreatedBy: "integration"}, http.StatusCreated, &resp)
			Expect(resp.Course).NotTo(BeNil())
			Expect(resp.Course.MoodleID).NotTo(BeNil())
			return &resp
		}
	})

	JustBeforeEach(func() {
		configPath := helpers.WriteConfigYAML(tempDir, registry.URL(), withGroups)
		server = helpers.NewServerTestHelper(ctx, configPath, lms)
		Expect(server.StartServer()).To(Succeed())
		server.WaitForServerReady(10 * time.Second)
	})

	AfterEach(func() {
		if server != nil {
			Expect(server.StopServer()).To(Succeed())
		}
		registry.Close()
		Expect(os.RemoveAll(tempDir)).To(Succeed())
	})

	Describe("course import", func() {
		It("creates the Moodle course and enrols its people", func() {
			resp := importCourse()
			Expect(resp.Course.ImportStatus).To(Equal(course.ImportCompleted))
			Expect(resp.Course.CreatedBy).To(Equal("integration"))
			Expect(resp.Summary).NotTo(BeNil())
			Expect(resp.Summary.Succeeded).To(Equal(1))

			moodleID := *resp.Course.MoodleID
			roles, visible, ok := lms.Enrollment(moodleID, aliceID)
			Expect(ok).To(BeTrue())
			Expect(visible).To(BeTrue())
			Expect(roles).To(ContainElements(helpers.StudentRoleID, helpers.SyncedRoleID))

			roles, _, ok = lms.Enrollment(moodleID, tinaID)
			Expect(ok).To(BeTrue())
			Expect(roles).To(ContainElements(helpers.TeacherRoleID, helpers.SyncedRoleID))

			_, _, ok = lms.Enrollment(moodleID, carolID)
			Expect(ok).To(BeFalse())
		})

		It("lists and returns the imported course", func() {
			importCourse()

			var list v1.ListCoursesResponse
			server.DoJSON(http.MethodGet, "/api/v1/courses", nil, http.StatusOK, &list)
			Expect(list.Count).To(Equal(1))
			Expect(list.Courses[0].RegistryID).To(Equal("otm-1"))

			var crs course.Course
			server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1", nil, http.StatusOK, &crs)
			Expect(crs.ImportStatus).To(Equal(course.ImportCompleted))
		})

		It("refuses to import a course twice", func() {
			importCourse()
			status, _ := server.Do(http.MethodPost, "/api/v1/courses", v1.ImportRequest{RegistryID: "otm-1"})
			Expect(status).To(Equal(http.StatusConflict))
		})

		It("returns not found for unknown courses", func() {
			status, _ := server.Do(http.MethodPost, "/api/v1/courses", v1.ImportRequest{RegistryID: "otm-missing"})
			Expect(status).To(Equal(http.StatusNotFound))

			status, _ = server.Do(http.MethodGet, "/api/v1/courses/otm-missing", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("course sync", func() {
		It("applies registry changes to the Moodle course", func() {
			moodleID := *importCourse().Course.MoodleID

			realisation.Enrolments = realisation.Enrolments[:1]
			registry.PutRealisation(realisation.WithStudent("s-3"))

			var summary process.Summary
			server.DoJSON(http.MethodPost, "/api/v1/courses/otm-1/sync", nil, http.StatusOK, &summary)
			Expect(summary.Succeeded).To(Equal(1))

			_, visible, ok := lms.Enrollment(moodleID, bobID)
			Expect(ok).To(BeTrue())
			Expect(visible).To(BeFalse(), "a student who left is suspended")

			roles, visible, ok := lms.Enrollment(moodleID, carolID)
			Expect(ok).To(BeTrue())
			Expect(visible).To(BeTrue())
			Expect(roles).To(ContainElement(helpers.StudentRoleID))
		})

		It("skips a locked course until the lock is cleared", func() {
			moodleID := *importCourse().Course.MoodleID
			registry.PutRealisation(realisation.WithStudent("s-3"))

			var record lock.SyncLock
			server.DoJSON(http.MethodPut, "/api/v1/courses/otm-1/lock",
				v1.LockRequest{Reason: "exam week"}, http.StatusOK, &record)
			Expect(record.Locked).To(BeTrue())
			Expect(record.Reason).To(Equal("exam week"))

			var summary process.Summary
			server.DoJSON(http.MethodPost, "/api/v1/courses/otm-1/sync", nil, http.StatusOK, &summary)
			Expect(summary.Skipped).To(Equal(1))
			Expect(summary.Items).To(HaveLen(1))
			Expect(summary.Items[0].Status).To(Equal(process.StatusLocked))
			_, _, ok := lms.Enrollment(moodleID, carolID)
			Expect(ok).To(BeFalse())

			var st v1.StatusResponse
			server.DoJSON(http.MethodGet, "/api/v1/status", nil, http.StatusOK, &st)
			Expect(st.LockedCourses).To(ConsistOf("otm-1"))

			status, _ := server.Do(http.MethodDelete, "/api/v1/courses/otm-1/lock", nil)
			Expect(status).To(Equal(http.StatusNoContent))

			server.DoJSON(http.MethodPost, "/api/v1/courses/otm-1/sync", nil, http.StatusOK, &summary)
			Expect(summary.Succeeded).To(Equal(1))
			_, _, ok = lms.Enrollment(moodleID, carolID)
			Expect(ok).To(BeTrue())
		})
	})

	Describe("runs", func() {
		waitForRun := func(runType string) *status.RunStatus {
			var runStatus *status.RunStatus
			Eventually(func(g Gomega) {
				var st v1.StatusResponse
				server.DoJSON(http.MethodGet, "/api/v1/status", nil, http.StatusOK, &st)
				runStatus = st.Runs[runType]
				g.Expect(runStatus).NotTo(BeNil())
				g.Expect(runStatus.LastSummary).NotTo(BeNil())
				g.Expect(runStatus.IsRunning()).To(BeFalse())
			}, 20*time.Second, 200*time.Millisecond).Should(Succeed())
			return runStatus
		}

		It("executes a triggered full run in the background", func() {
			moodleID := *importCourse().Course.MoodleID
			registry.PutRealisation(realisation.WithStudent("s-3"))

			var resp v1.TriggerResponse
			server.DoJSON(http.MethodPost, "/api/v1/runs/full", nil, http.StatusAccepted, &resp)
			Expect(resp.RunType).To(Equal("full"))

			runStatus := waitForRun("full")
			Expect(runStatus.Phase).To(Equal(status.RunPhaseComplete))
			Expect(runStatus.LastSummary.Total).To(Equal(1))
			Expect(runStatus.LastSuccess).NotTo(BeNil())

			_, _, ok := lms.Enrollment(moodleID, carolID)
			Expect(ok).To(BeTrue())
		})

		It("clears course locks on an unlock run", func() {
			importCourse()
			server.DoJSON(http.MethodPut, "/api/v1/courses/otm-1/lock", v1.LockRequest{}, http.StatusOK, nil)

			server.DoJSON(http.MethodPost, "/api/v1/runs/unlock", nil, http.StatusAccepted, nil)
			waitForRun("unlock")

			var record lock.SyncLock
			server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1/lock", nil, http.StatusOK, &record)
			Expect(record.Locked).To(BeFalse())
		})

		It("rejects unknown run types", func() {
			status, _ := server.Do(http.MethodPost, "/api/v1/runs/weekly", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})
	})

	Describe("groups", func() {
		It("mirrors study groups into Moodle on import", func() {
			importCourse()

			var tree groupsync.Tree
			server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1/groups/preview", nil, http.StatusOK, &tree)
			Expect(tree.CourseRegistryID).To(Equal("otm-1"))
			Expect(tree.Groupings).To(HaveLen(1))
			Expect(tree.Groupings[0].Groups).To(HaveLen(2))
			Expect(tree.Counts()[groupsync.ChangeCreate]).To(BeZero(), "everything was created during import")
		})

		Context("when group sync is disabled", func() {
			BeforeEach(func() {
				withGroups = false
			})

			It("creates groups only when processed explicitly", func() {
				importCourse()

				var tree groupsync.Tree
				server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1/groups/preview", nil, http.StatusOK, &tree)
				Expect(tree.Counts()[groupsync.ChangeCreate]).To(BeNumerically(">", 0))

				server.DoJSON(http.MethodPost, "/api/v1/courses/otm-1/groups/process", nil, http.StatusOK, &tree)
				Expect(tree.Failed()).To(BeFalse())

				server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1/groups/preview", nil, http.StatusOK, &tree)
				Expect(tree.Counts()[groupsync.ChangeCreate]).To(BeZero())
			})
		})

		It("returns not found for unknown courses", func() {
			status, _ := server.Do(http.MethodGet, "/api/v1/courses/otm-1/groups/preview", nil)
			Expect(status).To(Equal(http.StatusNotFound))
		})

		Context("when the Moodle course could not be created", func() {
			BeforeEach(func() {
				lms.Fail = func(method string) error {
					if method == "CreateCourse" {
						return errors.New("course creation disabled")
					}
					return nil
				}
			})

			It("refuses group sync of the course", func() {
				status, _ := server.Do(http.MethodPost, "/api/v1/courses", v1.ImportRequest{RegistryID: "otm-1"})
				Expect(status).To(Equal(http.StatusInternalServerError))

				var crs course.Course
				server.DoJSON(http.MethodGet, "/api/v1/courses/otm-1", nil, http.StatusOK, &crs)
				Expect(crs.ImportStatus).To(Equal(course.ImportCompletedFailed))

				status, _ = server.Do(http.MethodGet, "/api/v1/courses/otm-1/groups/preview", nil)
				Expect(status).To(Equal(http.StatusUnprocessableEntity))
			})
		})
	})
})
