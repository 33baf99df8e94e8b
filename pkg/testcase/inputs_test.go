package testcase_test

import (
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/backupqa/qa-agent/pkg/testcase"
)

var _ = Describe("Inputs", func() {
	Context("LoadInputs", func() {
		It("should select the entry of the testcase", func() {
			// Arrange
			doc := `{"58327": {"ClientName": "laptop1", "TimeoutMinutes": 5}, "60000": {"ClientName": "other"}}`

			// Act
			in, err := testcase.LoadInputs(strings.NewReader(doc), "58327")

			// Assert
			Expect(err).NotTo(HaveOccurred())
			Expect(in.String("ClientName")).To(Equal("laptop1"))
		})

		It("should accept a flat document", func() {
			in, err := testcase.LoadInputs(strings.NewReader(`{"ClientName": "laptop1"}`), "58327")
			Expect(err).NotTo(HaveOccurred())
			Expect(in.String("ClientName")).To(Equal("laptop1"))
		})

		It("should accept an empty document", func() {
			in, err := testcase.LoadInputs(strings.NewReader(""), "58327")
			Expect(err).NotTo(HaveOccurred())
			Expect(in).To(BeEmpty())
		})

		It("should reject invalid json", func() {
			_, err := testcase.LoadInputs(strings.NewReader(`{"ClientName":`), "58327")
			Expect(err).To(HaveOccurred())
		})
	})

	Context("accessors", func() {
		var in testcase.Inputs

		BeforeEach(func() {
			var err error
			in, err = testcase.LoadInputs(strings.NewReader(`{
				"SubclientId": 12,
				"Retries": "3",
				"InPlace": "true",
				"Verify": false,
				"TimeoutMinutes": 90,
				"Paths": ["/data", "/home"],
				"Machines": "vm1, vm2",
				"Empty": "",
				"Bad": "x"
			}`), "58327")
			Expect(err).NotTo(HaveOccurred())
		})

		It("should read numbers as strings and ints", func() {
			Expect(in.String("SubclientId")).To(Equal("12"))
			Expect(in.Int("SubclientId", 0)).To(Equal(12))
			Expect(in.Int("Retries", 0)).To(Equal(3))
			Expect(in.Int("Missing", 7)).To(Equal(7))
			_, err := in.Int("Bad", 0)
			Expect(err).To(HaveOccurred())
		})

		It("should read booleans", func() {
			Expect(in.Bool("InPlace", false)).To(BeTrue())
			Expect(in.Bool("Verify", true)).To(BeFalse())
			Expect(in.Bool("Missing", true)).To(BeTrue())
		})

		It("should read minutes", func() {
			Expect(in.Minutes("TimeoutMinutes", time.Minute)).To(Equal(90 * time.Minute))
			Expect(in.Minutes("Missing", time.Minute)).To(Equal(time.Minute))
		})

		It("should read string slices", func() {
			Expect(in.StringSlice("Paths")).To(Equal([]string{"/data", "/home"}))
			Expect(in.StringSlice("Machines")).To(Equal([]string{"vm1", "vm2"}))
			Expect(in.StringSlice("Missing")).To(BeNil())
		})

		It("should report empty values as missing", func() {
			Expect(in.Missing("SubclientId", "Empty", "Nope")).To(Equal([]string{"Empty", "Nope"}))
		})
	})
})
