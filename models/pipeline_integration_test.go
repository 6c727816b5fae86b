package models_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/mmdatafocus/boletos_backend/config"
	"github.com/mmdatafocus/boletos_backend/models"
	"github.com/mmdatafocus/boletos_backend/utils"
)

// Runs the import and split against MySQL 8 and redis in docker.
//
// Usage: INTEGRATION_TESTS=1 go test ./models -run Integration -v
func TestPipelineIntegrationMySQL(t *testing.T) {
	if strings.TrimSpace(os.Getenv("INTEGRATION_TESTS")) == "" {
		t.Skip("set INTEGRATION_TESTS=1 to run integration tests (requires docker)")
	}
	ctx := context.Background()

	redisName, redisPort := startRedisContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(redisName) })
	mysqlName, mysqlPort := startMySQLContainer(t)
	t.Cleanup(func() { _ = dockerRmForce(mysqlName) })

	t.Setenv("DB_USER", "root")
	t.Setenv("DB_PASSWORD", "testpw")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_PORT", mysqlPort)
	t.Setenv("DB_NAME", "boletos_test")

	db := config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry(fmt.Sprintf("127.0.0.1:%s", redisPort), 10)
	t.Cleanup(func() { config.SetRedisClient(nil) })
	if config.GetRedisLock() == nil {
		t.Fatalf("redis lock not ready")
	}
	if err := models.MigrateTable(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	lot := mustCreateLot(t, db, "Lote Integração")
	mustMapUnit(t, db, "APTO-101", lot.ID)

	csvPath := filepath.Join(t.TempDir(), "boletos.csv")
	content := "Ana;APTO-101;100,00;l1\nBia;APTO-999;50,00;l2\nCaio;APTO-101;1.250,75;l3\n"
	if err := os.WriteFile(csvPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	outcome, err := models.ImportBillingCSV(ctx, db, csvPath, config.DefaultPipelineSettings())
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if outcome.Imported != 2 || outcome.Failed != 1 {
		t.Fatalf("outcome = %+v", outcome)
	}

	settings := testSettings(t)
	source := sampleSource(t, db)

	// a split already holding the dataset lock makes a second one conflict
	held, err := config.GetRedisLock().Obtain(ctx, "lock:split:"+settings.SplitLockKey, time.Minute, nil)
	if err != nil {
		t.Fatalf("obtain lock: %v", err)
	}
	if _, err := models.SplitBillingDocument(ctx, db, source, settings); !errors.Is(err, utils.ErrConflict) {
		t.Fatalf("split under held lock err = %v, want conflict", err)
	}
	if err := held.Release(ctx); err != nil {
		t.Fatalf("release: %v", err)
	}

	split, err := models.SplitBillingDocument(ctx, db, source, settings)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if split.Processed != 2 {
		t.Fatalf("split = %+v", split)
	}
	// an unchanged document path must not read as a missing record on MySQL
	if _, err := models.SplitBillingDocument(ctx, db, source, settings); err != nil {
		t.Fatalf("rerun split: %v", err)
	}
}

func startRedisContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("boletos-test-redis-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-p", "127.0.0.1:0:6379",
		"redis:7-alpine",
	)
	if err != nil {
		t.Fatalf("start redis container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "6379/tcp")
	if err != nil {
		t.Fatalf("redis docker port: %v", err)
	}
	deadline := time.Now().Add(60 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "redis-cli", "ping"); err == nil {
			return name, port
		}
		time.Sleep(250 * time.Millisecond)
	}
	t.Fatalf("redis did not become ready")
	return "", ""
}

func startMySQLContainer(t *testing.T) (containerName, hostPort string) {
	t.Helper()
	name := fmt.Sprintf("boletos-test-mysql-%d", time.Now().UnixNano())
	out, err := dockerRun(
		"run", "-d", "--name", name,
		"-e", "MYSQL_ROOT_PASSWORD=testpw",
		"-e", "MYSQL_DATABASE=boletos_test",
		"-p", "127.0.0.1:0:3306",
		"mysql:8.0",
	)
	if err != nil {
		t.Fatalf("start mysql container: %v\n%s", err, out)
	}
	port, err := dockerHostPort(name, "3306/tcp")
	if err != nil {
		t.Fatalf("mysql docker port: %v", err)
	}
	deadline := time.Now().Add(120 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := dockerRun("exec", name, "mysqladmin", "ping", "-h", "127.0.0.1", "-ptestpw", "--silent"); err == nil {
			return name, port
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("mysql did not become ready")
	return "", ""
}

func dockerHostPort(container, portProto string) (string, error) {
	out, err := dockerRun("port", container, portProto)
	if err != nil {
		return "", fmt.Errorf("docker port: %w: %s", err, out)
	}
	// "127.0.0.1:49154\n"
	m := regexp.MustCompile(`:(\d+)`).FindStringSubmatch(out)
	if len(m) != 2 {
		return "", fmt.Errorf("unexpected docker port output: %q", out)
	}
	return m[1], nil
}

func dockerRmForce(container string) error {
	if strings.TrimSpace(container) == "" {
		return nil
	}
	_, err := dockerRun("rm", "-f", container)
	return err
}

func dockerRun(args ...string) (string, error) {
	b, err := exec.Command("docker", args...).CombinedOutput()
	return string(b), err
}
