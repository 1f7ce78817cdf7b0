// Package sensor 眼动仪数据读取与注视辐辏计算
package sensor

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const parallelEpsilon = 1e-8

// Vergence 计算注视辐辏距离（米）
// 功能：求左右眼两条视线之间最短连线段的中点，返回其到两眼中点的距离
// 参数：l0,r0-左右眼原点（厘米），ld,rd-左右眼视线方向
// 返回：辐辏距离，视线平行时返回1.0
// 算法说明：
// 1. 由两条射线的点积方程求出最短连线段两端在各自射线上的参数muL、muR
// 2. 两端点的中点减去两眼原点的中点即为合成视线
// 3. 仿真器坐标单位为厘米，结果除以100
func Vergence(l0, r0, ld, rd r3.Vec) float64 {
	lr := r3.Sub(l0, r0)
	d1343 := r3.Dot(lr, rd)
	d4321 := r3.Dot(rd, ld)
	d1321 := r3.Dot(lr, ld)
	d4343 := r3.Dot(rd, rd)
	d2121 := r3.Dot(ld, ld)
	denom := d2121*d4343 - d4321*d4321
	if math.Abs(denom) < parallelEpsilon {
		return 1.0
	}
	numer := d1343*d4321 - d1321*d4343
	muL := numer / denom
	muR := (d1343 + d4321*muL) / d4343

	ptL := r3.Add(l0, r3.Scale(muL, ld))
	ptR := r3.Add(r0, r3.Scale(muR, rd))
	mid := r3.Scale(0.5, r3.Add(ptL, ptR))
	origin := r3.Scale(0.5, r3.Add(l0, r0))
	return r3.Norm(r3.Sub(mid, origin)) / 100
}
