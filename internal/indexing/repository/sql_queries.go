package repository

const (
	createJobQuery = `INSERT INTO index_jobs (job_id, video_path, status, stage, progress, overall_progress, thumbnail_path, file_size, attempts)
					VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) RETURNING *`
	getJobByIDQuery = `SELECT job_id, video_path, status, stage, progress, overall_progress, thumbnail_path, file_size, attempts, created_at, updated_at
					FROM index_jobs WHERE job_id = $1`
	getJobByVideoPathQuery = `SELECT job_id, video_path, status, stage, progress, overall_progress, thumbnail_path, file_size, attempts, created_at, updated_at
					FROM index_jobs WHERE video_path = $1`
	listJobsQuery = `SELECT job_id, video_path, status, stage, progress, overall_progress, thumbnail_path, file_size, attempts, created_at, updated_at
					FROM index_jobs
					WHERE ($1 = '' OR status = $1) AND ($2 = '' OR video_path ILIKE '%' || $2 || '%')
					ORDER BY created_at DESC OFFSET $3 LIMIT $4`
	countJobsQuery = `SELECT COUNT(job_id) FROM index_jobs
					WHERE ($1 = '' OR status = $1) AND ($2 = '' OR video_path ILIKE '%' || $2 || '%')`
	updateJobQuery = `UPDATE index_jobs
					SET status = COALESCE(NULLIF($1, ''), status),
						stage = COALESCE(NULLIF($2, ''), stage),
						progress = $3,
						overall_progress = $4,
						thumbnail_path = COALESCE(NULLIF($5, ''), thumbnail_path),
						file_size = COALESCE(NULLIF($6, 0), file_size),
						attempts = $7,
						updated_at = NOW()
					WHERE job_id = $8`
	updateProgressQuery = `UPDATE index_jobs
					SET stage = $1, progress = $2, overall_progress = $3, updated_at = NOW()
					WHERE job_id = $4`
	updateStatusQuery = `UPDATE index_jobs SET status = $1, updated_at = NOW() WHERE job_id = $2`
)
