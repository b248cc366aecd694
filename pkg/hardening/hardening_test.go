// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hardening

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/walteh/patchrc/pkg/operation"
	"github.com/walteh/patchrc/pkg/patch"
	"github.com/walteh/patchrc/pkg/status"
)

func readFixture(t *testing.T, name string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	require.NoError(t, err, "reading fixture %s", name)
	return string(data)
}

func statuses(outcomes []patch.Outcome) []patch.Status {
	out := make([]patch.Status, len(outcomes))
	for i, o := range outcomes {
		out[i] = o.Status
	}
	return out
}

func assertNoop(t *testing.T, buf string, set *patch.Set) {
	t.Helper()
	again, outcomes := patch.Apply(context.Background(), buf, set)
	assert.Equal(t, buf, again, "second run should not change the text")
	for _, o := range outcomes {
		assert.Equal(t, patch.StatusSkipped, o.Status, "patch %s should be skipped on the second run: %s", o.Patch, o.Detail)
	}
}

func TestSalesOrder(t *testing.T) {
	before := readFixture(t, SalesOrderFile)
	golden := readFixture(t, "convertToDeliveryChallan.golden.js")

	after, outcomes := patch.Apply(context.Background(), before, SalesOrder())

	require.Len(t, outcomes, 5, "one outcome per patch")
	for _, o := range outcomes {
		assert.Equal(t, patch.StatusApplied, o.Status, "patch %s should apply: %s", o.Patch, o.Detail)
		assert.Equal(t, 1, o.Spans, "patch %s should touch one place", o.Patch)
	}

	assert.Contains(t, after, golden, "delivery conversion should match the hardened version")
	assert.Contains(t, after, "const paymentStatus = calculatePaymentStatus(totalAmount, paidAmount, 0);", "payment status should keep the paid amount")
	assert.Contains(t, after, "\"INVOICE\",", "invoice movement should be logged")
	assert.NotContains(t, after, "Reduce ONLY actual stock", "old stock update should be gone")
	assert.Equal(t, 1, strings.Count(after, "validateSalesOrderQuantities } from"), "helpers imported once")

	assertNoop(t, after, SalesOrder())
}

func TestDeliveryChallan(t *testing.T) {
	before := readFixture(t, DeliveryChallanFile)

	after, outcomes := patch.Apply(context.Background(), before, DeliveryChallan())

	assert.Equal(t, []patch.Status{
		patch.StatusSkipped, // imports already present
		patch.StatusApplied,
		patch.StatusApplied,
		patch.StatusSkipped, // no inline payment ladder
		patch.StatusSkipped, // listing already filtered
	}, statuses(outcomes), "statuses should match")

	assert.True(t, strings.HasPrefix(outcomes[3].Detail, "not applicable: "), "optional patch should say it does not apply, got %q", outcomes[3].Detail)
	assert.Contains(t, outcomes[4].Detail, "already applied at line", "listing patch should be recognized")

	assert.Contains(t, after, "    try {\n        // ERP-GRADE: Idempotency check\n        if (!mongoose.Types.ObjectId.isValid(req.params.id)) {", "idempotency marker should be inserted")
	assert.Contains(t, after, "        // ERP-GRADE: Idempotency - fail if already converted\n        // Validate not already converted\n", "conversion marker should be inserted")

	for _, o := range outcomes {
		assert.False(t, o.Failed(), "patch %s should not fail", o.Patch)
	}

	assertNoop(t, after, DeliveryChallan())
}

func TestSalesInvoice(t *testing.T) {
	before := readFixture(t, SalesInvoiceFile)

	after, outcomes := patch.Apply(context.Background(), before, SalesInvoice())

	assert.Equal(t, []patch.Status{patch.StatusApplied, patch.StatusApplied}, statuses(outcomes), "statuses should match")
	assert.Contains(t, after, "import { info, error } from \"../utils/logger.js\";\nimport { calculatePaymentStatus } from \"../utils/paymentStatusCalculator.js\";\n", "import should follow the logger import")
	assert.Contains(t, after, "      isDeleted: { $ne: true }\n    })\n      .populate(\"customer\", \"name phone\")", "listing should filter deleted invoices")
	assert.Contains(t, after, "const invoices = await Invoice.find({ createdBy: req.user._id });", "summary query should be left alone")

	assertNoop(t, after, SalesInvoice())
}

func TestTargets(t *testing.T) {
	targets := Targets(ControllersDir)

	require.Len(t, targets, 3, "one target per controller")

	want := []struct {
		file    string
		patches int
	}{
		{file: SalesOrderFile, patches: 5},
		{file: DeliveryChallanFile, patches: 5},
		{file: SalesInvoiceFile, patches: 2},
	}
	for i, w := range want {
		path := filepath.Join(ControllersDir, w.file)
		assert.Equal(t, path, targets[i].Path, "target %d path", i)
		assert.Equal(t, path, targets[i].Set.Target(), "target %d set binding", i)
		assert.Equal(t, w.patches, targets[i].Set.Len(), "target %d patch count", i)
	}
}

func TestRunAgainstControllers(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(base, ControllersDir)
	require.NoError(t, os.MkdirAll(dir, 0755), "creating controllers dir")
	for _, name := range []string{SalesOrderFile, DeliveryChallanFile, SalesInvoiceFile} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(readFixture(t, name)), 0644), "copying %s", name)
	}

	runner, err := operation.New(operation.Options{Files: status.New(base), Backup: true})
	require.NoError(t, err, "creating runner")

	ctx := context.Background()

	first := runner.Run(ctx, Targets(ControllersDir))
	require.True(t, first.OverallSuccess(), "first run should succeed: %v", first.FailedPatches())
	assert.Equal(t, 3, first.Counts().Persisted, "every controller changes on the first run")

	_, err = os.Stat(filepath.Join(dir, SalesOrderFile+status.BackupSuffix))
	assert.NoError(t, err, "backup should be kept")

	second := runner.Run(ctx, Targets(ControllersDir))
	require.True(t, second.OverallSuccess(), "second run should succeed")
	assert.Equal(t, 0, second.Counts().Persisted, "nothing changes on the second run")
	assert.Equal(t, 0, second.Counts().Applied, "nothing applies on the second run")
}
