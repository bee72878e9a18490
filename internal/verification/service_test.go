package verification

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks WorkerStore,RecordStore,AuditPublisher,TxRunner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	hw "healthnet/internal/healthworker/models"
	hwstore "healthnet/internal/healthworker/store"
	registry "healthnet/internal/registry/models"
	regstore "healthnet/internal/registry/store"
	id "healthnet/pkg/domain"
	dErrors "healthnet/pkg/domain-errors"
	audit "healthnet/pkg/platform/audit"
	"healthnet/pkg/platform/audit/publisher"
	auditmemory "healthnet/pkg/platform/audit/store/memory"
)

// =============================================================================
// Verification Engine Test Suite
// =============================================================================
// Runs the engine against the in-memory stores and sharded tx so claim
// exclusivity and rollback are exercised through the real code paths.

type ServiceSuite struct {
	suite.Suite
	ctx        context.Context
	workers    *hwstore.InMemoryStore
	records    *regstore.InMemoryStore
	auditStore *auditmemory.InMemoryStore
	service    *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.workers = hwstore.NewInMemoryStore()
	s.records = regstore.NewInMemoryStore()
	s.auditStore = auditmemory.NewInMemoryStore()
	s.service = New(s.workers, s.records, hwstore.NewShardedTx(0),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithAuditPublisher(publisher.NewPublisher(s.auditStore)),
		WithPageSize(2),
	)
}

func (s *ServiceSuite) newWorker(w hw.Worker) id.WorkerID {
	w.CreatedAt = time.Now()
	workerID, err := s.workers.Create(s.ctx, &w)
	s.Require().NoError(err)
	return workerID
}

func (s *ServiceSuite) addRecord(r registry.Record) id.RecordID {
	recordID, err := s.records.Insert(s.ctx, r)
	s.Require().NoError(err)
	return recordID
}

func (s *ServiceSuite) tierOf(workerID id.WorkerID) hw.VerificationTier {
	w, err := s.workers.FindByID(s.ctx, workerID)
	s.Require().NoError(err)
	return w.VerificationTier
}

func (s *ServiceSuite) claimantOf(source registry.Source, recordID id.RecordID) *id.WorkerID {
	r, err := s.records.FindByID(s.ctx, source, recordID)
	s.Require().NoError(err)
	return r.ClaimedBy
}

func (s *ServiceSuite) attempt(workerID id.WorkerID) bool {
	ok, err := s.service.AttemptAutoVerify(s.ctx, workerID)
	s.Require().NoError(err)
	return ok
}

// =============================================================================
// Registration number strategy
// =============================================================================

func (s *ServiceSuite) TestRegistrationNumber() {
	tests := []struct {
		name       string
		source     registry.Source
		workerReg  string
		recordName string
		recordReg  string
		want       bool
	}{
		{"exact name professional", registry.SourceProfessional, "1234", "Brandon Bickford", "1234", true},
		{"exact name district", registry.SourceDistrict, "1234", "Brandon Bickford", "1234", true},
		{"exact name partner", registry.SourcePartner, "1234", "Brandon Bickford", "1234", true},
		{"surname mismatch", registry.SourceProfessional, "1234", "Brandon Johnson", "1234", false},
		{"surname close enough", registry.SourceProfessional, "1234", "Brandon Bickfords", "1234", true},
		{"number mismatch", registry.SourceProfessional, "1235", "Brandon Bickford", "1234", false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			workerID := s.newWorker(hw.Worker{
				Email:              "bickfordb@gmail.com",
				Surname:            "Bickford",
				RegistrationNumber: tt.workerReg,
			})
			recordID := s.addRecord(registry.Record{
				Source:             tt.source,
				Name:               tt.recordName,
				RegistrationNumber: tt.recordReg,
			})

			s.Equal(tt.want, s.attempt(workerID))
			claimant := s.claimantOf(tt.source, recordID)
			if tt.want {
				s.Equal(hw.TierRegistrationNumber, s.tierOf(workerID))
				s.Require().NotNil(claimant)
				s.Equal(workerID, *claimant)
			} else {
				s.Equal(hw.TierUnverified, s.tierOf(workerID))
				s.Nil(claimant)
			}
		})
	}
}

func (s *ServiceSuite) TestRegistrationNeedsSurname() {
	workerID := s.newWorker(hw.Worker{RegistrationNumber: "1234"})
	s.addRecord(registry.Record{Source: registry.SourceProfessional, Name: "Brandon Bickford", RegistrationNumber: "1234"})

	s.False(s.attempt(workerID))
}

// =============================================================================
// Payroll number strategy
// =============================================================================

func (s *ServiceSuite) TestPayrollNumber() {
	tests := []struct {
		name        string
		source      registry.Source
		checkNumber string
		want        bool
	}{
		{"payroll source", registry.SourcePayroll, "4567", true},
		{"district source", registry.SourceDistrict, "4567", true},
		{"partner source", registry.SourcePartner, "4567", true},
		{"number mismatch", registry.SourcePayroll, "1111", false},
		{"professional source is not searched", registry.SourceProfessional, "4567", false},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			s.SetupTest()
			workerID := s.newWorker(hw.Worker{Email: "bickfordb@gmail.com", PayrollNumber: "4567"})
			s.addRecord(registry.Record{Source: tt.source, PayrollNumber: tt.checkNumber})

			s.Equal(tt.want, s.attempt(workerID))
			if tt.want {
				s.Equal(hw.TierPayrollNumber, s.tierOf(workerID))
			} else {
				s.Equal(hw.TierUnverified, s.tierOf(workerID))
			}
		})
	}
}

func (s *ServiceSuite) TestPayrollSourceOrder() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	partner := s.addRecord(registry.Record{Source: registry.SourcePartner, PayrollNumber: "4567"})
	district := s.addRecord(registry.Record{Source: registry.SourceDistrict, PayrollNumber: "4567"})

	s.True(s.attempt(workerID))
	s.NotNil(s.claimantOf(registry.SourceDistrict, district), "district is searched before partner")
	s.Nil(s.claimantOf(registry.SourcePartner, partner))
}

// =============================================================================
// Phone and name strategies
// =============================================================================

func (s *ServiceSuite) TestPhoneNumber() {
	workerID := s.newWorker(hw.Worker{VodacomPhone: "+255754000111"})
	recordID := s.addRecord(registry.Record{Source: registry.SourcePartner, PhoneNumber: "+255754000111"})

	s.True(s.attempt(workerID))
	s.Equal(hw.TierPhoneNumber, s.tierOf(workerID))
	s.NotNil(s.claimantOf(registry.SourcePartner, recordID))
}

func (s *ServiceSuite) TestName() {
	workerID := s.newWorker(hw.Worker{Name: "Neema Mwakasege"})
	s.addRecord(registry.Record{Source: registry.SourcePayroll, Name: "Rehema Juma"})
	match := s.addRecord(registry.Record{Source: registry.SourceDistrict, Name: "Neema Mwakasenge"})

	s.True(s.attempt(workerID))
	s.Equal(hw.TierName, s.tierOf(workerID))
	s.NotNil(s.claimantOf(registry.SourceDistrict, match))

	name, ok, err := s.service.MatchedName(s.ctx, workerID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal("Neema Mwakasenge", name)
}

func (s *ServiceSuite) TestNameRepeatedTokenNeedsTwoPartners() {
	workerID := s.newWorker(hw.Worker{Name: "Juma Juma"})
	other := s.addRecord(registry.Record{Source: registry.SourcePayroll, Name: "Juma Ali"})

	s.False(s.attempt(workerID))
	s.Nil(s.claimantOf(registry.SourcePayroll, other))

	match := s.addRecord(registry.Record{Source: registry.SourceDistrict, Name: "Juma Juma"})
	s.True(s.attempt(workerID))
	s.Equal(hw.TierName, s.tierOf(workerID))
	s.NotNil(s.claimantOf(registry.SourceDistrict, match))
	s.Nil(s.claimantOf(registry.SourcePayroll, other))
}

func (s *ServiceSuite) TestNameFilterRejectsNonAlphabeticTokens() {
	for _, name := range []string{"Neema 2", "Neema M.", "N3ema Juma"} {
		s.Run(name, func() {
			s.SetupTest()
			workerID := s.newWorker(hw.Worker{Name: name})
			s.addRecord(registry.Record{Source: registry.SourcePayroll, Name: "Neema"})
			s.False(s.attempt(workerID))
		})
	}
}

// =============================================================================
// Cross-strategy properties
// =============================================================================

func (s *ServiceSuite) TestStrategyPriority() {
	workerID := s.newWorker(hw.Worker{
		Surname:            "Bickford",
		PayrollNumber:      "4567",
		RegistrationNumber: "1234",
	})
	reg := s.addRecord(registry.Record{Source: registry.SourceProfessional, Name: "Brandon Bickford", RegistrationNumber: "1234"})
	pay := s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})

	s.True(s.attempt(workerID))
	s.Equal(hw.TierPayrollNumber, s.tierOf(workerID))
	s.NotNil(s.claimantOf(registry.SourcePayroll, pay))
	s.Nil(s.claimantOf(registry.SourceProfessional, reg), "only one record is claimed")
}

func (s *ServiceSuite) TestFallsThroughToLaterStrategy() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "9999", VodacomPhone: "+255"})
	s.addRecord(registry.Record{Source: registry.SourceDistrict, PhoneNumber: "+255"})

	s.True(s.attempt(workerID))
	s.Equal(hw.TierPhoneNumber, s.tierOf(workerID))
}

func (s *ServiceSuite) TestIdempotent() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	first := s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})
	second := s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})

	s.True(s.attempt(workerID))
	s.True(s.attempt(workerID))

	s.Equal(hw.TierPayrollNumber, s.tierOf(workerID))
	s.NotNil(s.claimantOf(registry.SourcePayroll, first), "lowest id wins")
	s.Nil(s.claimantOf(registry.SourcePayroll, second), "second attempt claims nothing")
	s.Len(s.auditStore.ListAction(s.ctx, audit.EventWorkerAutoVerified), 1)
}

func (s *ServiceSuite) TestManualWorkerIsNotTouched() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567", VerificationTier: hw.TierManual})
	recordID := s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})

	s.True(s.attempt(workerID))
	s.Equal(hw.TierManual, s.tierOf(workerID))
	s.Nil(s.claimantOf(registry.SourcePayroll, recordID))
}

func (s *ServiceSuite) TestClaimedRecordsAreSkipped() {
	owner := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	other := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})

	s.True(s.attempt(owner))
	s.False(s.attempt(other))
	s.Equal(hw.TierUnverified, s.tierOf(other))
}

func (s *ServiceSuite) TestPagesPastRejectedCandidates() {
	workerID := s.newWorker(hw.Worker{Surname: "Bickford", RegistrationNumber: "1234"})
	for range 5 {
		s.addRecord(registry.Record{Source: registry.SourceProfessional, Name: "Amani Johnson", RegistrationNumber: "1234"})
	}
	match := s.addRecord(registry.Record{Source: registry.SourceProfessional, Name: "B. Bickford", RegistrationNumber: "1234"})

	s.True(s.attempt(workerID))
	s.NotNil(s.claimantOf(registry.SourceProfessional, match))
}

func (s *ServiceSuite) TestNoMatchChangesNothing() {
	workerID := s.newWorker(hw.Worker{Name: "Amani", PayrollNumber: "1", Surname: "X", RegistrationNumber: "2", VodacomPhone: "3"})
	s.addRecord(registry.Record{Source: registry.SourceDistrict, Name: "Zawadi", PayrollNumber: "9", RegistrationNumber: "9", PhoneNumber: "9"})

	s.False(s.attempt(workerID))
	s.Equal(hw.TierUnverified, s.tierOf(workerID))
	s.Empty(s.auditStore.ListAction(s.ctx, audit.EventWorkerAutoVerified))
}

func (s *ServiceSuite) TestAutoVerifiedAuditEvent() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	recordID := s.addRecord(registry.Record{Source: registry.SourceDistrict, PayrollNumber: "4567"})

	s.True(s.attempt(workerID))

	events, err := s.auditStore.ListByWorker(s.ctx, workerID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(string(audit.EventWorkerAutoVerified), events[0].Action)
	s.Equal(string(registry.SourceDistrict), events[0].Fields["source"])
	s.Equal(int64(recordID), events[0].Fields["record_id"])
	s.Equal("payroll_number", events[0].Fields["strategy"])
}

func (s *ServiceSuite) TestUnknownWorker() {
	_, err := s.service.AttemptAutoVerify(s.ctx, id.WorkerID(404))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// =============================================================================
// Concurrency
// =============================================================================

func (s *ServiceSuite) TestExclusivityUnderConcurrency() {
	const workers = 40
	ids := make([]id.WorkerID, workers)
	for i := range ids {
		ids[i] = s.newWorker(hw.Worker{PayrollNumber: "4567"})
	}
	records := make([]id.RecordID, 3)
	for i := range records {
		records[i] = s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})
	}

	var wg sync.WaitGroup
	results := make([]bool, workers)
	for i, workerID := range ids {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.service.AttemptAutoVerify(s.ctx, workerID)
			s.NoError(err)
			results[i] = ok
		}()
	}
	wg.Wait()

	verified := 0
	for _, ok := range results {
		if ok {
			verified++
		}
	}
	s.Equal(len(records), verified, "one worker per record")

	seen := map[id.WorkerID]bool{}
	for _, recordID := range records {
		claimant := s.claimantOf(registry.SourcePayroll, recordID)
		s.Require().NotNil(claimant)
		s.False(seen[*claimant], "a worker claims at most one record")
		seen[*claimant] = true
		s.Equal(hw.TierPayrollNumber, s.tierOf(*claimant))
	}
}

func (s *ServiceSuite) TestConcurrentAttemptsSameWorker() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	for range 4 {
		s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})
	}

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := s.service.AttemptAutoVerify(s.ctx, workerID)
			s.NoError(err)
			s.True(ok)
		}()
	}
	wg.Wait()

	unclaimed, err := s.records.ListUnclaimed(s.ctx, registry.SourcePayroll, registry.Filter{}, 0, 0)
	s.Require().NoError(err)
	s.Len(unclaimed, 3, "exactly one record claimed")
}

// =============================================================================
// Manual verification and matched name
// =============================================================================

func (s *ServiceSuite) TestMarkManuallyVerified() {
	workerID := s.newWorker(hw.Worker{Name: "Amani"})

	s.Require().NoError(s.service.MarkManuallyVerified(s.ctx, workerID, "met at district office"))
	s.Require().NoError(s.service.MarkManuallyVerified(s.ctx, workerID, ""))

	w, err := s.workers.FindByID(s.ctx, workerID)
	s.Require().NoError(err)
	s.Equal(hw.TierManual, w.VerificationTier)
	s.Equal("met at district office", w.ManualVerificationNotes)
	s.Len(s.auditStore.ListAction(s.ctx, audit.EventWorkerManuallyVerified), 1)

	err = s.service.MarkManuallyVerified(s.ctx, id.WorkerID(404), "")
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestMatchedNameOnlyForNameTier() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	s.addRecord(registry.Record{Source: registry.SourcePayroll, Name: "Amani Juma", PayrollNumber: "4567"})
	s.True(s.attempt(workerID))

	_, ok, err := s.service.MatchedName(s.ctx, workerID)
	s.Require().NoError(err)
	s.False(ok)
}

// =============================================================================
// Store failures
// =============================================================================

type failingRecords struct {
	*regstore.InMemoryStore
	listErr  error
	claimErr error
}

func (f *failingRecords) ListUnclaimed(ctx context.Context, source registry.Source, filter registry.Filter, afterID id.RecordID, limit int) ([]registry.Record, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.InMemoryStore.ListUnclaimed(ctx, source, filter, afterID, limit)
}

func (f *failingRecords) Claim(ctx context.Context, source registry.Source, recordID id.RecordID, workerID id.WorkerID) error {
	if f.claimErr != nil {
		return f.claimErr
	}
	return f.InMemoryStore.Claim(ctx, source, recordID, workerID)
}

func (s *ServiceSuite) TestStoreFailuresAreInternal() {
	workerID := s.newWorker(hw.Worker{PayrollNumber: "4567"})
	s.addRecord(registry.Record{Source: registry.SourcePayroll, PayrollNumber: "4567"})

	s.Run("list failure", func() {
		svc := New(s.workers, &failingRecords{InMemoryStore: s.records, listErr: errors.New("db down")}, hwstore.NewShardedTx(0))
		_, err := svc.AttemptAutoVerify(s.ctx, workerID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})

	s.Run("claim failure", func() {
		svc := New(s.workers, &failingRecords{InMemoryStore: s.records, claimErr: errors.New("db down")}, hwstore.NewShardedTx(0))
		_, err := svc.AttemptAutoVerify(s.ctx, workerID)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
		s.Equal(hw.TierUnverified, s.tierOf(workerID))
	})
}
