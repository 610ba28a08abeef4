package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDiff = `diff --git a/model/order.go b/model/order.go
index 3b18e51..a9c4f7e 100644
--- a/model/order.go
+++ b/model/order.go
@@ -4,0 +5,2 @@ type Order struct {
+	Entity
+	Total int
@@ -20 +22 @@ func NewOrder(id string) *Order {
-	return &Order{}
+	return &Order{Total: 1}
@@ -30,2 +31,0 @@ func helper() {
-	a()
-	b()
diff --git a/app/old.go b/app/old.go
deleted file mode 100644
index 1c2d3e4..0000000
--- a/app/old.go
+++ /dev/null
@@ -1,3 +0,0 @@
-package app
-
-type Old struct{}
diff --git a/app/new.go b/app/new.go
new file mode 100644
index 0000000..5e6f7a8
--- /dev/null
+++ b/app/new.go
@@ -0,0 +1,2 @@
+package app
+
`

func TestParseDiff(t *testing.T) {
	changes, err := parseDiff([]byte(sampleDiff))
	require.NoError(t, err)
	require.Len(t, changes, 3)

	assert.Equal(t, "model/order.go", changes[0].Path)
	assert.False(t, changes[0].Deleted)
	assert.Equal(t, []int{5, 6, 22, 31}, changes[0].ChangedLines)

	assert.Equal(t, "app/old.go", changes[1].Path)
	assert.True(t, changes[1].Deleted)
	assert.Empty(t, changes[1].ChangedLines)

	assert.Equal(t, "app/new.go", changes[2].Path)
	assert.Equal(t, []int{1, 2}, changes[2].ChangedLines)
}

func TestParseDiff_Empty(t *testing.T) {
	changes, err := parseDiff([]byte("\n"))
	require.NoError(t, err)
	assert.Empty(t, changes)
}
