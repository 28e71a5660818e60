package tumble_test

import (
	"crypto/rand"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/luxfi/a2l/internal/test"
	"github.com/luxfi/a2l/pkg/bitcoin"
	"github.com/luxfi/a2l/pkg/hsmcl"
	"github.com/luxfi/a2l/protocols/a2l/tumble"
)

func TestTumble(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "A2L Tumble Suite")
}

var _ = Describe("Tumble", func() {
	var he *hsmcl.SecretKey

	BeforeEach(func() {
		he = test.HSMCL(GinkgoTB())
	})

	Describe("Happy path", func() {
		It("should settle a zero-fee tumble end to end", func() {
			chain, err := tumble.RunHappyPath(tumble.Config{
				TumbleAmount: 10_000_000,
			}, he, rand.Reader, nil)
			Expect(err).NotTo(HaveOccurred())

			Expect(chain.SenderFund).NotTo(BeNil())
			Expect(chain.TumblerRedeem).NotTo(BeNil())
			Expect(chain.TumblerFund).NotTo(BeNil())
			Expect(chain.ReceiverRedeem).NotTo(BeNil())

			// Both settlement chains spend what was funded.
			Expect(chain.TumblerRedeem.TxIn[0].PreviousOutPoint.Hash).To(Equal(chain.SenderFund.TxHash()))
			Expect(chain.ReceiverRedeem.TxIn[0].PreviousOutPoint.Hash).To(Equal(chain.TumblerFund.TxHash()))

			Expect(chain.SenderFund.TxOut[0].Value).To(BeEquivalentTo(10_000_000))
			Expect(chain.TumblerRedeem.TxOut[0].Value).To(BeEquivalentTo(10_000_000))
			Expect(chain.TumblerFund.TxOut[0].Value).To(BeEquivalentTo(10_000_000))
			Expect(chain.ReceiverRedeem.TxOut[0].Value).To(BeEquivalentTo(10_000_000))
		})

		It("should account fees into every joint output and takeout", func() {
			const (
				tumbleAmount = 10_000_000
				tumblerFee   = 10_000
				feePerWU     = 15
			)
			chain, err := tumble.RunHappyPath(tumble.Config{
				TumbleAmount:    tumbleAmount,
				TumblerFee:      tumblerFee,
				SpendTxFeePerWU: feePerWU,
			}, he, rand.Reader, nil)
			Expect(err).NotTo(HaveOccurred())

			spendFee := int64(bitcoin.MaxSatisfactionWeight * feePerWU)
			Expect(chain.SenderFund.TxOut[0].Value).To(BeEquivalentTo(tumbleAmount + tumblerFee + spendFee))
			Expect(chain.TumblerRedeem.TxOut[0].Value).To(BeEquivalentTo(tumbleAmount + tumblerFee))
			Expect(chain.TumblerFund.TxOut[0].Value).To(BeEquivalentTo(tumbleAmount + spendFee))
			Expect(chain.ReceiverRedeem.TxOut[0].Value).To(BeEquivalentTo(tumbleAmount))
		})
	})

	Describe("Protocol budgets", func() {
		It("should keep all nine messages inside the bandwidth budget", func() {
			meter := &tumble.BandwidthMeter{}
			_, err := tumble.RunHappyPath(tumble.Config{
				TumbleAmount: 10_000_000,
			}, he, rand.Reader, meter)
			Expect(err).NotTo(HaveOccurred())

			Expect(meter.Messages).To(Equal(9))
			Expect(meter.Sizes).To(HaveLen(9))
			Expect(meter.Total).To(BeNumerically("<=", 7146))
		})

		It("should keep the combined redeem weight inside the budget", func() {
			chain, err := tumble.RunHappyPath(tumble.Config{
				TumbleAmount: 10_000_000,
			}, he, rand.Reader, nil)
			Expect(err).NotTo(HaveOccurred())

			weight := bitcoin.TransactionWeight(chain.TumblerRedeem) +
				bitcoin.TransactionWeight(chain.ReceiverRedeem)
			Expect(weight).To(BeNumerically("<=", 1095))
		})
	})

	Describe("Refund path", func() {
		It("should leave both parties with signed refunds when the tumbler goes silent", func() {
			chain, err := tumble.RunRefund(tumble.Config{
				TumbleAmount:    10_000_000,
				TumblerFee:      10_000,
				SpendTxFeePerWU: 15,
				Expiry:          144,
			}, he, rand.Reader)
			Expect(err).NotTo(HaveOccurred())

			Expect(chain.TumblerRefund).NotTo(BeNil())
			Expect(chain.SenderRefund).NotTo(BeNil())

			// Refunds spend their joint outputs and only become valid at
			// expiry.
			Expect(chain.TumblerRefund.TxIn[0].PreviousOutPoint.Hash).To(Equal(chain.TumblerFund.TxHash()))
			Expect(chain.SenderRefund.TxIn[0].PreviousOutPoint.Hash).To(Equal(chain.SenderFund.TxHash()))
			Expect(chain.TumblerRefund.LockTime).To(BeEquivalentTo(144))
			Expect(chain.SenderRefund.LockTime).To(BeEquivalentTo(144))
			Expect(chain.TumblerRefund.TxIn[0].Witness).To(HaveLen(3))
			Expect(chain.SenderRefund.TxIn[0].Witness).To(HaveLen(3))
		})
	})
})
