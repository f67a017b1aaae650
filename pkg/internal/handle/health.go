package handle

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	ctxPkg "github.com/yeisme/quickdrop/pkg/context"
)

const probeTimeout = 2 * time.Second

var errNotInitialized = errors.New("client not initialized")

// probes 各依赖的探测函数，key 即 /health/:component 中的组件名.
var probes = map[string]func(ctx context.Context) error{
	"db": func(ctx context.Context) error {
		if c := ctxPkg.GetDBClient(ctx); c != nil && c.DB != nil {
			return c.HealthCheck(ctx)
		}

		return errNotInitialized
	},
	// 内存对象存储始终健康
	"s3": func(ctx context.Context) error {
		if m := ctxPkg.GetManager(ctx); m != nil && m.GetBlobStore() != nil {
			return m.BlobHealthCheck(ctx)
		}

		return errNotInitialized
	},
	"kv": func(ctx context.Context) error {
		if c := ctxPkg.GetKVClient(ctx); c != nil {
			return c.HealthCheck(ctx)
		}

		return errNotInitialized
	},
	"mq": func(ctx context.Context) error {
		if c := ctxPkg.GetMQClient(ctx); c != nil {
			return c.HealthCheck(ctx)
		}

		return errNotInitialized
	},
}

func runProbe(ctx context.Context, name string) gin.H {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	if err := probes[name](ctx); err != nil {
		return gin.H{"component": name, "status": "unhealthy", "error": err.Error()}
	}

	return gin.H{"component": name, "status": "ok"}
}

// Health 并发探测全部依赖，任一失败返回 503.
//
//	@Summary	依赖健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Success	200	{object}	map[string]any
//	@Failure	503	{object}	map[string]any
//	@Router		/health [get]
func Health(c *gin.Context) {
	var (
		mu      sync.Mutex
		wg      sync.WaitGroup
		results = make(map[string]gin.H, len(probes))
		status  = http.StatusOK
	)

	for name := range probes {
		wg.Go(func() {
			res := runProbe(c.Request.Context(), name)

			mu.Lock()
			defer mu.Unlock()

			results[name] = res
			if res["status"] != "ok" {
				status = http.StatusServiceUnavailable
			}
		})
	}

	wg.Wait()

	c.JSON(status, gin.H{"status": http.StatusText(status), "components": results})
}

// HealthComponent 探测单个依赖：db、s3、kv 或 mq.
//
//	@Summary	单个依赖健康检查
//	@Tags		健康检查
//	@Produce	json
//	@Param		component	path		string	true	"db | s3 | kv | mq"
//	@Success	200			{object}	map[string]string
//	@Failure	404			{object}	map[string]string
//	@Failure	503			{object}	map[string]string
//	@Router		/health/{component} [get]
func HealthComponent(c *gin.Context) {
	name := c.Param("component")
	if _, ok := probes[name]; !ok {
		NoRoute(c)

		return
	}

	res := runProbe(c.Request.Context(), name)
	if res["status"] != "ok" {
		c.JSON(http.StatusServiceUnavailable, res)

		return
	}

	c.JSON(http.StatusOK, res)
}
